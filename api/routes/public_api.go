package routes

import (
	"socialgraph/api/handlers"
	"socialgraph/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api/v1/")
	{
		public.POST("auth/register", handlers.Register)
		public.POST("auth/login", handlers.Login)
	}

	private := router.Group("/api/v1/")
	private.Use(middleware.AuthMiddleware())
	{
		private.POST("auth/logout", handlers.Logout)
		private.GET("user/search", handlers.UserSearch)
		private.GET("user/get/:id", handlers.UserGet)
		private.GET("users/:id/wall", handlers.GetUserWall)

		// Связи
		private.POST("relations/:action", handlers.RelationAction)
		private.GET("relations/with/:id", handlers.GetRelation)
		private.GET("relations/blocked", handlers.GetBlockedUsers)
		private.GET("friends/list", handlers.GetFriends)
		private.GET("friends/requests", handlers.GetPendingRequests)
		private.GET("friends/outgoing", handlers.GetOutgoingRequests)

		// Посты
		private.POST("posts", handlers.CreatePost)
		private.GET("posts/:post_id", handlers.GetPost)
		private.PUT("posts/:post_id", handlers.EditPost)
		private.DELETE("posts/:post_id", handlers.DeletePost)
		private.GET("feed", handlers.GetFeed)

		// Комментарии и лайки
		private.POST("posts/:post_id/comments", handlers.AddComment)
		private.GET("posts/:post_id/comments", handlers.GetComments)
		private.DELETE("comments/:comment_id", handlers.DeleteComment)
		private.POST("posts/:post_id/like", handlers.ToggleLike)

		// Сообщения
		private.POST("messages", handlers.SendMessage)
		private.GET("dialogs", handlers.GetConversations)
		private.GET("dialogs/:id", handlers.GetDialog)
		private.POST("dialogs/:id/read", handlers.MarkDialogRead)
		private.GET("counters", handlers.GetCounters)

		// Уведомления
		private.GET("notifications", handlers.GetNotifications)
		private.POST("notifications/read", handlers.MarkNotificationsRead)

		// Мероприятия
		private.POST("events", handlers.CreateEvent)
		private.GET("events", handlers.ListEvents)
		private.POST("events/:event_id/join", handlers.JoinEvent)
		private.POST("events/:event_id/leave", handlers.LeaveEvent)
		private.GET("events/:event_id/members", handlers.GetEventMembers)

		// WebSocket
		private.GET("ws", handlers.WSHandler)

		// Админские эндпоинты
		private.POST("admin/feed/rebuild/:user_id", handlers.RebuildUserFeed)
		private.GET("admin/queue/stats", handlers.GetQueueStats)
	}
}
