package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/record"
)

func (s *Server) handleListEntities(c echo.Context) error {
	if s.pool == nil {
		return internalError(c, "Entity listing unavailable without a database")
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	entityType := strings.TrimSpace(strings.ToLower(c.QueryParam("entity_type")))
	if entityType != "" {
		if _, ok := record.ParseEntityType(entityType); !ok {
			return failValidation(c, map[string]string{"entity_type": "must be contact or account"})
		}
	}

	validatedOnly := false
	if raw := strings.TrimSpace(c.QueryParam("validated")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return failValidation(c, map[string]string{"validated": "must be a boolean"})
		}
		validatedOnly = parsed
	}

	entities, err := s.pool.ListCanonicalEntities(c.Request().Context(), db.EntityListOptions{
		EntityType:    entityType,
		ValidatedOnly: validatedOnly,
		Query:         strings.TrimSpace(c.QueryParam("q")),
		Limit:         limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("list entities failed")
		return internalError(c, "Failed to load entities")
	}

	return success(c, map[string]any{
		"items": entities,
		"count": len(entities),
		"filters": map[string]any{
			"entity_type": entityType,
			"validated":   validatedOnly,
			"q":           strings.TrimSpace(c.QueryParam("q")),
			"limit":       limit,
		},
	})
}

func (s *Server) handleEntityDetail(c echo.Context) error {
	if s.pool == nil {
		return internalError(c, "Entity detail unavailable without a database")
	}

	entityUUID := strings.TrimSpace(c.Param("entity_uuid"))
	if entityUUID == "" {
		return failValidation(c, map[string]string{"entity_uuid": "is required"})
	}

	entity, err := s.pool.GetCanonicalEntity(c.Request().Context(), entityUUID)
	if err != nil {
		s.logger.Error().Err(err).Str("entity_uuid", entityUUID).Msg("get entity failed")
		return internalError(c, "Failed to load entity")
	}
	if entity == nil {
		return failNotFound(c, "Entity not found")
	}

	decisions, err := s.pool.ListReconcileDecisions(c.Request().Context(), entityUUID, 50)
	if err != nil {
		s.logger.Error().Err(err).Str("entity_uuid", entityUUID).Msg("list decisions failed")
		return internalError(c, "Failed to load decision history")
	}

	return success(c, map[string]any{
		"entity":    entity,
		"decisions": decisions,
	})
}

func parsePositiveInt(raw string, fallback, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if parsed < minValue || parsed > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return parsed, nil
}
