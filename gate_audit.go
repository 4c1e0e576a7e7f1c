package waitgate

import "context"

const (
	flowSignup   = "signup"
	flowWebhook  = "webhook"
	flowEndpoint = "endpoint"
)

const (
	auditEventSignupAllowed    = "signup_allowed"
	auditEventSignupRejected   = "signup_rejected"
	auditEventWebhookAllowed   = "webhook_allowed"
	auditEventWebhookRejected  = "webhook_rejected"
	auditEventEndpointRejected = "endpoint_rejected"
	auditEventConsumeFailed    = "limiter_consume_failed"
)

func (g *Gate) emitAudit(
	ctx context.Context,
	eventType string,
	flow string,
	success bool,
	ip string,
	policy string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}
	if ip == "" {
		ip = ClientIPFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if id := requestIDFromContext(ctx); id != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["request_id"] = id
	}

	event := AuditEvent{
		Timestamp: g.now().UTC(),
		EventType: eventType,
		Flow:      flow,
		IP:        ip,
		Success:   success,
		Policy:    policy,
		Metadata:  metadata,
	}
	if reason, ok := metadata["reason"]; ok {
		event.Reason = reason
		delete(metadata, "reason")
	}
	if err != nil {
		event.Error = "backend_unavailable"
	}

	g.audit.Emit(ctx, event)
}
