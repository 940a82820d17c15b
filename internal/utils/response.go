package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"BuoyWatch.api/internal/models"
)

// RespondWithError sends a JSON error response using the APIError model.
// The HTTP status code comes from the APIError.
func RespondWithError(writer http.ResponseWriter, apiErr models.APIError) {
	RespondWithJSON(writer, apiErr.StatusCode, apiErr)
}

// RespondWithJSON sends a JSON response.
func RespondWithJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode JSON response", slog.Any("error", err))
		http.Error(writer, "Failed to send JSON response", http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	writer.Write(append(body, '\n'))
}

// RespondWithFile sends body as a download named fileName.
func RespondWithFile(writer http.ResponseWriter, fileName, contentType string, body []byte) {
	writer.Header().Set("Content-Type", contentType)
	writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	writer.Header().Set("Content-Length", strconv.Itoa(len(body)))
	writer.WriteHeader(http.StatusOK)
	writer.Write(body)
}
