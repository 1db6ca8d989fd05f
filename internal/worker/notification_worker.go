package worker

import (
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/service"
)

// StartEventSubscribers wires the in-process event consumers: operator
// notifications and analytics cache invalidation.
func StartEventSubscribers(dispatcher events.Dispatcher, notifications *service.NotificationService, analytics *service.AnalyticsService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if analytics != nil {
		analytics.RegisterInvalidation(dispatcher)
	}
}
