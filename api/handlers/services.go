package handlers

import "socialgraph/services"

// Общая сборка сервисов для обработчиков
var (
	counterService      = services.NewCounterService()
	notificationService = services.NewNotificationService(counterService)
	visibilityService   = services.NewVisibilityService()
	messageService      = services.NewMessageService(visibilityService, counterService)
	effectDispatcher    = services.NewEffectDispatcher(notificationService, messageService, counterService)
	relationService     = services.NewRelationService(effectDispatcher)
	postService         = services.NewPostService(visibilityService)
	commentService      = services.NewCommentService(visibilityService, notificationService)
	likeService         = services.NewLikeService(visibilityService, notificationService)
	eventService        = services.NewEventService(visibilityService)
	userService         = services.NewUserService()
)
