package alarm

import (
	"context"
	"errors"
	"fmt"

	"safirnotify/internal/external"
	"safirnotify/internal/notifications/core"
	"safirnotify/internal/types"
)

// ErrAlarmLookup wraps any failure to resolve the alarm definition. It is
// fatal for the event: without the definition there is nobody to notify.
var ErrAlarmLookup = errors.New("alarm lookup failed")

// SkipReason explains why an event produced no notification.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipNoTransition       SkipReason = "no_transition"
	SkipInvalidDestination SkipReason = "invalid_destination"
)

// Enrichment is the result of Enrich. Exactly one of Notification and Skip is
// set.
type Enrichment struct {
	Notification *types.EnrichedNotification
	Skip         SkipReason
}

// Enricher resolves an AlarmEvent into an EnrichedNotification using the
// monitoring and inventory collaborators.
type Enricher struct {
	monitoring external.MonitoringClient
	inventory  external.InventoryClient
	metrics    core.NotificationMetrics
	logger     types.Logger
}

// EnricherConfig holds the dependencies needed to create an Enricher.
type EnricherConfig struct {
	Monitoring external.MonitoringClient
	Inventory  external.InventoryClient
	Metrics    core.NotificationMetrics
	Logger     types.Logger
}

// NewEnricher creates an Enricher. Metrics and Logger are optional.
func NewEnricher(cfg EnricherConfig) *Enricher {
	e := &Enricher{
		monitoring: cfg.Monitoring,
		inventory:  cfg.Inventory,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
	if e.metrics == nil {
		e.metrics = core.NopMetrics{}
	}
	if e.logger == nil {
		e.logger = types.NopLogger{}
	}
	return e
}

// Enrich builds the notification payload for ev.
//
//  1. Evaluate the transition; a no-op edge returns SkipNoTransition without
//     touching either collaborator.
//  2. Fetch the alarm definition. Errors are wrapped with ErrAlarmLookup.
//  3. Validate the destination address; malformed ones skip the event.
//  4. Resolve the instance name from the first resource_id query term.
//     Lookup failures leave InstanceName nil instead of failing the event.
//  5. Map meter and operator to display labels; copy the rule facts.
func (e *Enricher) Enrich(ctx context.Context, ev types.AlarmEvent) (Enrichment, error) {
	logger := types.LoggerFromContext(ctx, e.logger)

	transition := Evaluate(ev.Current, ev.Previous)
	if transition == types.TransitionNone {
		logger.Info("same state continues, skipping",
			"current", string(ev.Current),
			"previous", string(ev.Previous),
		)
		return Enrichment{Skip: SkipNoTransition}, nil
	}

	def, err := e.monitoring.GetAlarmDefinition(ctx, ev.AlarmID)
	if err != nil {
		return Enrichment{}, fmt.Errorf("%w: alarm %s: %w", ErrAlarmLookup, ev.AlarmID, err)
	}

	if err := types.ValidateEmail(def.NotificationEmail); err != nil {
		logger.Warn("alarm has no usable notification address, skipping",
			"error", err.Error(),
		)
		return Enrichment{Skip: SkipInvalidDestination}, nil
	}

	rule := def.ThresholdRule
	n := &types.EnrichedNotification{
		AlarmID:           ev.AlarmID,
		Transition:        transition,
		Email:             def.NotificationEmail,
		InstanceName:      e.resolveInstanceName(ctx, logger, rule.Query),
		ResourceType:      ResourceTypeLabel(rule.MeterName),
		ComparisonLabel:   OperatorLabel(rule.ComparisonOperator),
		Threshold:         rule.Threshold,
		Period:            rule.Period,
		EvaluationPeriods: rule.EvaluationPeriods,
		Reason:            ev.Reason,
	}

	return Enrichment{Notification: n}, nil
}

// resolveInstanceName looks up the display name of the alarm's resource.
// Returns nil when the alarm names no resource or the lookup fails.
func (e *Enricher) resolveInstanceName(ctx context.Context, logger types.Logger, query []types.QueryTerm) *string {
	resourceID, matches := FindResourceID(query)
	if matches == 0 {
		return nil
	}
	if matches > 1 {
		logger.Warn("alarm query has multiple resource_id terms, using the first",
			"resource_id", resourceID,
			"matches", matches,
		)
		e.metrics.RecordDuplicateResourceID(ctx)
	}
	if resourceID == "" {
		return nil
	}
	if e.inventory == nil {
		return nil
	}

	name, err := e.inventory.GetResourceName(ctx, resourceID)
	if err != nil {
		logger.Warn("resource name lookup failed, sending without instance name",
			"resource_id", resourceID,
			"error", err.Error(),
		)
		e.metrics.RecordResourceLookupFailure(ctx)
		return nil
	}
	return &name
}

// FindResourceID scans query in order and returns the value of the first term
// whose field is resource_id, together with the total number of such terms.
// matches == 0 means the alarm is not bound to a resource.
func FindResourceID(query []types.QueryTerm) (resourceID string, matches int) {
	for _, term := range query {
		if term.Field != types.ResourceIDField {
			continue
		}
		if matches == 0 {
			resourceID = term.Value
		}
		matches++
	}
	return resourceID, matches
}
