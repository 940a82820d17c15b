package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relvacode/iso8601"

	"BuoyWatch.api/internal/export"
	"BuoyWatch.api/internal/models"
	"BuoyWatch.api/internal/repository"
	"BuoyWatch.api/internal/service"
	"BuoyWatch.api/internal/utils"
)

// DataController handles HTTP requests for buoy readings.
type DataController struct {
	service *service.DataService
	watcher *service.StatusWatcher
	logger  *slog.Logger
}

// Option configures a DataController.
type Option func(*DataController)

// WithStatusWatcher enables manual status refreshes through w.
func WithStatusWatcher(w *service.StatusWatcher) Option {
	return func(c *DataController) { c.watcher = w }
}

// NewDataController creates a new DataController.
func NewDataController(service *service.DataService, logger *slog.Logger, opts ...Option) *DataController {
	if logger == nil {
		logger = slog.Default()
	}
	c := &DataController{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleWindows lists the supported query windows.
func (c *DataController) HandleWindows(w http.ResponseWriter, r *http.Request) {
	windows := models.Windows()
	resp := make([]WindowResponse, len(windows))
	for i, win := range windows {
		resp[i] = newWindowResponse(win)
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// HandleDevices lists the devices that have readings in the store.
func (c *DataController) HandleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := c.service.Devices(r.Context())
	if err != nil {
		c.respondWithServiceError(w, r, err)
		return
	}
	if devices == nil {
		devices = []string{}
	}
	utils.RespondWithJSON(w, http.StatusOK, DevicesResponse{Devices: devices})
}

// HandleStatus reports the freshness of the device's latest reading.
func (c *DataController) HandleStatus(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDFromPath(w, r)
	if !ok {
		return
	}
	report, err := c.service.Status(r.Context(), deviceID)
	if err != nil {
		c.respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, newStatusResponse(report))
}

// HandleSeries serves the resampled chart series and summary of a window.
func (c *DataController) HandleSeries(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDFromPath(w, r)
	if !ok {
		return
	}
	window, ok := windowFromQuery(w, r)
	if !ok {
		return
	}
	report, err := c.service.Window(r.Context(), deviceID, window)
	if err != nil {
		c.respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, newSeriesResponse(report))
}

// HandleExport serves a CSV or JSON download of a window or of an explicit
// from/to range.
func (c *DataController) HandleExport(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDFromPath(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	req := models.SeriesRequest{DeviceID: deviceID}
	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, err.Error(), nil, http.StatusBadRequest))
		return
	}
	req.Format = format

	if raw := query.Get("raw"); raw != "" {
		req.Raw, err = strconv.ParseBool(raw)
		if err != nil {
			utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, "raw must be a boolean", nil, http.StatusBadRequest))
			return
		}
	}

	if query.Get("from") != "" || query.Get("to") != "" {
		if query.Get("from") == "" {
			utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMissingParameter, "from is required when to is set", nil, http.StatusBadRequest))
			return
		}
		if req.From, ok = timeFromQuery(w, r, "from"); !ok {
			return
		}
		if req.To, ok = timeFromQuery(w, r, "to"); !ok {
			return
		}
	} else if req.Window, ok = windowFromQuery(w, r); !ok {
		return
	}

	body, fileName, contentType, err := c.service.Export(r.Context(), req)
	if err != nil {
		c.respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithFile(w, fileName, contentType, body)
}

// HandleAnalysis serves the temperature histogram and hour-of-day profile.
func (c *DataController) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDFromPath(w, r)
	if !ok {
		return
	}
	window, ok := windowFromQuery(w, r)
	if !ok {
		return
	}
	bins := 0
	if s := r.URL.Query().Get("bins"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 200 {
			utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, "bins must be an integer between 1 and 200", nil, http.StatusBadRequest))
			return
		}
		bins = n
	}

	analysis, err := c.service.Analyze(r.Context(), deviceID, window, bins)
	if err != nil {
		c.respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, newAnalysisResponse(analysis))
}

// HandleRefresh schedules an immediate background status poll of a watched
// device and returns the status from the previous poll.
func (c *DataController) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDFromPath(w, r)
	if !ok {
		return
	}
	if c.watcher == nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeNotFound, "status polling is disabled", nil, http.StatusNotFound))
		return
	}

	err := c.watcher.Refresh(deviceID)
	switch {
	case errors.Is(err, service.ErrNotWatched):
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeNotFound,
			fmt.Sprintf("device %q is not polled", deviceID),
			map[string][]string{"polled": c.watcher.Devices()}, http.StatusNotFound))
		return
	case errors.Is(err, service.ErrRefreshLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(service.DefaultRefreshInterval.Seconds())))
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeRateLimited, "refresh requested too often", nil, http.StatusTooManyRequests))
		return
	case err != nil:
		c.respondWithServiceError(w, r, err)
		return
	}

	resp := RefreshResponse{DeviceID: deviceID, Scheduled: true}
	if report, ok := c.watcher.Cached(deviceID); ok {
		last := newStatusResponse(report)
		resp.Last = &last
	}
	utils.RespondWithJSON(w, http.StatusAccepted, resp)
}

func deviceIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	deviceID := mux.Vars(r)["deviceID"]
	if deviceID == "" {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMissingParameter, "deviceID is required", nil, http.StatusBadRequest))
		return "", false
	}
	return deviceID, true
}

func windowFromQuery(w http.ResponseWriter, r *http.Request) (models.Window, bool) {
	name := r.URL.Query().Get("window")
	if name == "" {
		return models.DefaultWindow, true
	}
	window, err := models.ParseWindow(name)
	if err != nil {
		names := make([]string, 0, len(models.Windows()))
		for _, win := range models.Windows() {
			names = append(names, win.Name)
		}
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidWindow, err.Error(), map[string][]string{"supported": names}, http.StatusBadRequest))
		return models.Window{}, false
	}
	return window, true
}

func timeFromQuery(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return time.Time{}, true
	}
	t, err := iso8601.ParseString(s)
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInvalidFormat, fmt.Sprintf("%s must be an ISO 8601 timestamp", key), nil, http.StatusBadRequest))
		return time.Time{}, false
	}
	return t.UTC(), true
}

// respondWithServiceError maps service failures onto API errors.
func (c *DataController) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr models.APIError
	switch {
	case errors.Is(err, models.ErrInvalidWindow):
		apiErr = models.NewAPIError(models.ErrorCodeInvalidWindow, err.Error(), nil, http.StatusBadRequest)
	case errors.Is(err, repository.ErrInvalidRange):
		apiErr = models.NewAPIError(models.ErrorCodeInvalidRange, err.Error(), nil, http.StatusBadRequest)
	case errors.Is(err, repository.ErrStoreUnavailable):
		apiErr = models.NewAPIError(models.ErrorCodeStoreUnavailable, "the reading store is unavailable, try again later", nil, http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled):
		c.logger.Debug("request cancelled", slog.String("path", r.URL.Path))
		return
	default:
		apiErr = models.NewAPIError(models.ErrorCodeInternalServerError, "internal server error", nil, http.StatusInternalServerError)
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	utils.RespondWithError(w, apiErr)
}
