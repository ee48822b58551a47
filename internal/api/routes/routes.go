// server/internal/api/routes/routes.go
package routes

import (
	"greencycle-api-server/config"
	"greencycle-api-server/internal/api/handlers"
	"greencycle-api-server/internal/api/middleware"
	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/pickup"
	"greencycle-api-server/internal/s3"
	"greencycle-api-server/internal/socket"
	"greencycle-api-server/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter nhận vào các thành phần phụ thuộc và thiết lập các route.
func SetupRouter(
	cfg config.Config,
	db *mongo.Database,
	s3Uploader *s3.Uploader,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	// Stores and the lifecycle service shared by the handlers.
	pickupStore := &store.PickupStore{DB: db}
	postStore := &store.PostStore{DB: db}
	materialStore := &store.MaterialStore{DB: db}
	messageStore := &store.MessageStore{DB: db}

	pickupService := &pickup.Service{
		Pickups:          pickupStore,
		Posts:            postStore,
		Materials:        materialStore,
		Log:              messageStore,
		Publisher:        wsHub,
		CancelLeadWindow: cfg.CancelLeadWindow(),
	}

	userHandler := &handlers.UserHandler{DB: db, Cfg: cfg}
	postHandler := &handlers.PostHandler{Posts: postStore, Messages: messageStore, Pickups: pickupStore}
	materialHandler := &handlers.MaterialHandler{Materials: materialStore}
	pickupHandler := &handlers.PickupHandler{Service: pickupService, Pickups: pickupStore, S3Uploader: s3Uploader}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub, Pickups: pickupStore}

	apiV1 := router.Group("/api/v1")
	{
		// === CÁC ROUTE KHÔNG YÊU CẦU XÁC THỰC ===

		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
		}

		public := apiV1.Group("/")
		{
			public.GET("/materials", materialHandler.ListMaterials)
			public.GET("/posts", postHandler.ListPosts)
			public.GET("/posts/:id", postHandler.GetPost)
		}

		// WebSocket route authenticates via query token inside the handler.
		apiV1.GET("/ws/pickups/:id", webSocketHandler.ServeWs)

		// === CÁC ROUTE YÊU CẦU XÁC THỰC (PROTECTED) ===

		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate())
		admin.Use(middleware.Authorize(models.RoleAdmin))
		{
			admin.POST("/users", userHandler.CreateUser)

			materials := admin.Group("/materials")
			{
				materials.POST("/", materialHandler.CreateMaterial)
				materials.PUT("/:id", materialHandler.UpdateMaterial)
				materials.DELETE("/:id", materialHandler.RetireMaterial)
			}
		}

		businessRoutes := apiV1.Group("/")
		businessRoutes.Use(middleware.Authenticate())
		businessRoutes.Use(middleware.Authorize(models.RoleGiver, models.RoleCollector, models.RoleAdmin))
		{
			posts := businessRoutes.Group("/posts")
			{
				createPostRoutes := posts.Group("/")
				createPostRoutes.Use(middleware.Authorize(models.RoleGiver, models.RoleAdmin))
				{
					createPostRoutes.POST("/", postHandler.CreatePost)
				}
				posts.GET("/:id/messages", postHandler.GetPostMessages)
			}

			pickups := businessRoutes.Group("/pickups")
			{
				// Chỉ collector được đề xuất pickup.
				proposeRoutes := pickups.Group("/")
				proposeRoutes.Use(middleware.Authorize(models.RoleCollector))
				{
					proposeRoutes.POST("/", pickupHandler.ProposePickup)
				}

				pickups.GET("/my", pickupHandler.GetMyPickups)
				pickups.GET("/:id", pickupHandler.GetPickup)
				pickups.PUT("/:id/proposal", pickupHandler.EditProposal)
				pickups.POST("/:id/transition", pickupHandler.Transition)

				// Chỉ giver được hoàn tất pickup.
				completeRoutes := pickups.Group("/:id")
				completeRoutes.Use(middleware.Authorize(models.RoleGiver))
				{
					completeRoutes.POST("/complete", pickupHandler.Complete)
				}

				// Chỉ collector được upload ảnh minh chứng.
				proofRoutes := pickups.Group("/:id")
				proofRoutes.Use(middleware.Authorize(models.RoleCollector))
				{
					proofRoutes.POST("/proof-photo", pickupHandler.UploadProofPhoto)
				}
			}
		}
	}

	return router
}
