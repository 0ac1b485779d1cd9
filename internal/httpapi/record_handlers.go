package httpapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	payloadschema "horse.fit/unify/schema"
)

// handleIngestRecord stages one provider record. The payload is validated
// against the embedded schema before anything touches the database.
func (s *Server) handleIngestRecord(c echo.Context) error {
	if s.ingest == nil {
		return internalError(c, "Record ingestion unavailable without a database")
	}

	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxRequestBodyBytes)
	payload, err := io.ReadAll(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": "failed to read request body"})
	}

	rec, err := payloadschema.ValidateRawRecordPayload(payload)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	result, err := s.ingest.IngestOne(c.Request().Context(), rec)
	if err != nil {
		s.logger.Error().Err(err).Msg("stage record failed")
		return internalError(c, "Failed to stage record")
	}

	status := http.StatusCreated
	if !result.Inserted {
		status = http.StatusOK
	}
	return c.JSON(status, apiEnvelope{Status: "success", Data: result})
}
