package routes

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"BuoyWatch.api/internal/controller"
)

// RegisterRoutes registers all application routes. metricsHandler may be nil.
func RegisterRoutes(router *mux.Router, controller *controller.DataController, metricsHandler http.Handler) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}).Methods(http.MethodGet)

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/windows", controller.HandleWindows).Methods(http.MethodGet)
	api.HandleFunc("/devices", controller.HandleDevices).Methods(http.MethodGet)

	device := api.PathPrefix("/devices/{deviceID}").Subrouter()
	device.HandleFunc("/status", controller.HandleStatus).Methods(http.MethodGet)
	device.HandleFunc("/series", controller.HandleSeries).Methods(http.MethodGet)
	device.HandleFunc("/export", controller.HandleExport).Methods(http.MethodGet)
	device.HandleFunc("/analysis", controller.HandleAnalysis).Methods(http.MethodGet)
	device.HandleFunc("/refresh", controller.HandleRefresh).Methods(http.MethodPost)
}
