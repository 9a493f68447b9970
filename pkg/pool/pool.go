package pool

import (
	"sync"

	"github.com/fleetlab/telematics-backend/internal/models"
)

// defaultSliceCap стартовая емкость переиспользуемых слайсов позиций.
// Типичный суточный трек после гэп-фильтра укладывается в несколько тысяч точек.
const defaultSliceCap = 4096

// ObjectPools содержит пулы объектов для переиспользования на горячем пути
// чтения диапазонов позиций
type ObjectPools struct {
	positionSlicePool sync.Pool
}

// Global пулы объектов
var Global = &ObjectPools{
	positionSlicePool: sync.Pool{
		New: func() interface{} {
			s := make([]models.Position, 0, defaultSliceCap)
			return &s
		},
	},
}

// GetPositionSlice возвращает пустой слайс позиций из пула
func (p *ObjectPools) GetPositionSlice() *[]models.Position {
	s := p.positionSlicePool.Get().(*[]models.Position)
	*s = (*s)[:0]
	return s
}

// PutPositionSlice возвращает слайс в пул. Вызывающий не должен
// использовать слайс после возврата.
func (p *ObjectPools) PutPositionSlice(s *[]models.Position) {
	if s == nil || cap(*s) > 1<<16 {
		// Слишком разросшиеся буферы не держим
		return
	}
	p.positionSlicePool.Put(s)
}
