package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetlab/telematics-backend/internal/models"
	"github.com/fleetlab/telematics-backend/internal/repository"
	"github.com/fleetlab/telematics-backend/internal/service"
	"github.com/fleetlab/telematics-backend/pkg/utils"
)

// RESTHandler обработчик REST API endpoints отчетов
type RESTHandler struct {
	reports *service.ReportService
	latest  repository.LatestPositionStore
	logger  *utils.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRESTHandler создает новый REST handler
func NewRESTHandler(reports *service.ReportService, latest repository.LatestPositionStore, logger *utils.Logger) *RESTHandler {
	return &RESTHandler{
		reports: reports,
		latest:  latest,
		logger:  logger,
		timeout: 30 * time.Second,
		now:     time.Now,
	}
}

// GetDailyActivity возвращает сегменты активности ТС за сутки
// GET /api/v1/vehicles/:id/activity/daily?date=2025-06-10
func (h *RESTHandler) GetDailyActivity(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_date",
			"message": "Query parameter date must be YYYY-MM-DD",
		})
		return
	}

	report, err := h.reports.GetDailyActivityReport(ctx, c.Param("id"), date)
	if err != nil {
		h.writeError(c, err, "daily activity report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetMileage возвращает суммарный пробег ТС за диапазон дат
// GET /api/v1/vehicles/:id/mileage?from=2025-06-01&to=2025-06-30
func (h *RESTHandler) GetMileage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}

	report, err := h.reports.GetMileageReport(ctx, c.Param("id"), from, to)
	if err != nil {
		h.writeError(c, err, "mileage report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetMileagePeriods возвращает пробег с разбивкой по периодам.
// Неизвестное значение period трактуется как day.
// GET /api/v1/vehicles/:id/mileage/periods?from=...&to=...&period=hour
func (h *RESTHandler) GetMileagePeriods(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}
	period := models.ParsePeriodType(c.Query("period"))

	report, err := h.reports.GetMileagePeriodReport(ctx, c.Param("id"), from, to, period)
	if err != nil {
		h.writeError(c, err, "mileage period report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetFuel возвращает топливный отчет ТС за диапазон дат.
// Без from/to берется скользящее окно последних 30 дней.
// GET /api/v1/vehicles/:id/fuel?from=...&to=...
func (h *RESTHandler) GetFuel(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var from, to time.Time
	if c.Query("from") == "" && c.Query("to") == "" {
		to = h.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
		from = to.AddDate(0, 0, -30)
	} else {
		var ok bool
		from, to, ok = h.parseRange(c)
		if !ok {
			return
		}
	}

	report, err := h.reports.GetFuelReport(ctx, c.Param("id"), from, to)
	if err != nil {
		h.writeError(c, err, "fuel report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetDriving возвращает оценку вождения ТС за диапазон дат
// GET /api/v1/vehicles/:id/driving?from=...&to=...
func (h *RESTHandler) GetDriving(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}

	report, err := h.reports.GetDrivingScore(ctx, c.Param("id"), from, to)
	if err != nil {
		h.writeError(c, err, "driving score")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetMonthlyFleetReport возвращает месячный отчет по парку компании.
// Без year/month берется предыдущий полный месяц. Параметры type,
// department и vehicle_ids сужают парк до подмножества ТС.
// GET /api/v1/fleet/:companyId/reports/monthly?year=2025&month=6&department=north
func (h *RESTHandler) GetMonthlyFleetReport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var year, month int
	if v := c.Query("year"); v != "" {
		year, _ = strconv.Atoi(v)
	}
	if v := c.Query("month"); v != "" {
		month, _ = strconv.Atoi(v)
	}
	// year без month (и наоборот) неполон, считаем оба отсутствующими
	if year == 0 || month == 0 {
		year, month = 0, 0
	}

	flt := repository.VehicleFilter{
		VehicleType: c.Query("type"),
		Department:  c.Query("department"),
	}
	if v := c.Query("vehicle_ids"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				flt.VehicleIDs = append(flt.VehicleIDs, id)
			}
		}
	}

	report, err := h.reports.GetMonthlyFleetReport(ctx, c.Param("companyId"), year, month, flt)
	if err != nil {
		h.writeError(c, err, "monthly fleet report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetLatestPosition возвращает последнюю известную позицию устройства ТС
// GET /api/v1/vehicles/:id/position/latest
func (h *RESTHandler) GetLatestPosition(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	vehicle, err := h.reports.ResolveVehicle(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "latest position")
		return
	}

	pos, err := h.latest.GetLatestPosition(ctx, vehicle.DeviceID)
	if err == repository.ErrNotFound {
		c.JSON(http.StatusOK, gin.H{
			"vehicle_id": vehicle.ID,
			"device_id":  vehicle.DeviceID,
			"no_data":    true,
		})
		return
	}
	if err != nil {
		h.writeError(c, err, "latest position")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vehicle_id": vehicle.ID,
		"position":   pos,
	})
}

// parseRange разбирает обязательные параметры from/to (YYYY-MM-DD).
// Граница to эксклюзивна и сдвигается на конец указанного дня.
func (h *RESTHandler) parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_from",
			"message": "Query parameter from must be YYYY-MM-DD",
		})
		return time.Time{}, time.Time{}, false
	}

	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_to",
			"message": "Query parameter to must be YYYY-MM-DD",
		})
		return time.Time{}, time.Time{}, false
	}
	to = to.AddDate(0, 0, 1)

	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_range",
			"message": "to must not be before from",
		})
		return time.Time{}, time.Time{}, false
	}

	return from, to, true
}

// writeError транслирует ошибки сервиса в HTTP статусы
func (h *RESTHandler) writeError(c *gin.Context, err error, op string) {
	switch err {
	case service.ErrVehicleNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "vehicle_not_found",
			"message": "Vehicle not found",
		})
	case service.ErrInvalidRange:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_range",
			"message": "Invalid date range",
		})
	default:
		h.logger.WithError(err).Errorf("Failed to build %s", op)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "Failed to build report",
		})
	}
}
