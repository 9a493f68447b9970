package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// MaintenanceState административные флаги, управляемые извне через файл
// состояния. Читается атомарным снимком, перечитывается при изменении файла.
type MaintenanceState struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}

// RuntimeState внедряемый сервис состояния времени выполнения.
// Заменяет глобальный изменяемый синглтон: каждый потребитель получает
// ссылку через конструктор и читает снимок через Maintenance().
type RuntimeState struct {
	mu     sync.RWMutex
	state  MaintenanceState
	logger *utils.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRuntimeState создает сервис состояния. Пустой путь stateFile означает,
// что режим обслуживания недоступен и состояние всегда выключено.
func NewRuntimeState(stateFile string, logger *utils.Logger) (*RuntimeState, error) {
	rs := &RuntimeState{
		logger: logger,
		done:   make(chan struct{}),
	}

	if stateFile == "" {
		return rs, nil
	}

	if err := rs.reload(stateFile); err != nil {
		// Отсутствующий файл на старте допустим: флаги появятся позже
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load maintenance state: %w", err)
		}
		logger.WithField("file", stateFile).Warn("Maintenance state file does not exist yet")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}
	rs.watcher = watcher

	// Следим за каталогом: редакторы и оркестраторы заменяют файл атомарным rename
	if err := watcher.Add(filepath.Dir(stateFile)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch state dir: %w", err)
	}

	go rs.watch(stateFile)

	return rs, nil
}

// Maintenance возвращает снимок текущего состояния обслуживания
func (rs *RuntimeState) Maintenance() MaintenanceState {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.state
}

// Close останавливает наблюдение за файлом состояния
func (rs *RuntimeState) Close() error {
	close(rs.done)
	if rs.watcher != nil {
		return rs.watcher.Close()
	}
	return nil
}

func (rs *RuntimeState) watch(stateFile string) {
	base := filepath.Base(stateFile)
	for {
		select {
		case <-rs.done:
			return
		case event, ok := <-rs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := rs.reload(stateFile); err != nil {
				rs.logger.WithError(err).Warn("Failed to reload maintenance state")
				continue
			}
			rs.logger.WithField("enabled", rs.Maintenance().Enabled).Info("Maintenance state reloaded")
		case err, ok := <-rs.watcher.Errors:
			if !ok {
				return
			}
			rs.logger.WithError(err).Warn("Maintenance state watcher error")
		}
	}
}

func (rs *RuntimeState) reload(stateFile string) error {
	data, err := os.ReadFile(stateFile)
	if err != nil {
		return err
	}

	var state MaintenanceState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("invalid state file: %w", err)
	}

	rs.mu.Lock()
	rs.state = state
	rs.mu.Unlock()

	return nil
}
