package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// eventRepo implements EventRepo backed by the llm_request_events table.
type eventRepo struct {
	db *gorm.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	ev := LLMRequestEvent{
		Provider:     data.Provider,
		Model:        data.Model,
		Purpose:      data.Purpose,
		InputTokens:  data.InputTokens,
		OutputTokens: data.OutputTokens,
		LatencyMs:    data.LatencyMs,
		Success:      data.Success,
		ErrorMessage: data.ErrorMessage,
		RequestBody:  data.RequestBody,
		ResponseBody: data.ResponseBody,
	}
	if err := r.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	var out []LLMRequestEvent
	if err := applyOpts(r.db.WithContext(ctx).Model(&LLMRequestEvent{}), opts).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query LLM request events: %w", err)
	}
	return out, nil
}

func (r *eventRepo) GetLLMRequest(ctx context.Context, id uint) (*LLMRequestEvent, error) {
	var ev LLMRequestEvent
	if err := r.db.WithContext(ctx).First(&ev, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

func (r *eventRepo) UsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "purpose")
}

func (r *eventRepo) UsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "model")
}

// usage groups events by column, which must be a trusted column name.
func (r *eventRepo) usage(ctx context.Context, column string) ([]LLMUsage, error) {
	var out []LLMUsage
	err := r.db.WithContext(ctx).Model(&LLMRequestEvent{}).
		Select(column + " AS name, COUNT(*) AS calls, " +
			"COALESCE(SUM(input_tokens), 0) AS input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS output_tokens, " +
			"COALESCE(AVG(latency_ms), 0) AS avg_latency_ms").
		Group(column).
		Order(column).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate LLM usage by %s: %w", column, err)
	}
	return out, nil
}
