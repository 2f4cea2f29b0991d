package server

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/product"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/infra/mq"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/middleware"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/repository/mysql"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/service"
)

// schedulerHeader 由部署平台的定时任务代理注入，
// 带上它的请求视为来自调度器的可信触发
const schedulerHeader = "X-Scheduler-Invocation"

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台 Web 服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(db, orderRepo)
	sweepSvc := service.NewSweepService(orderRepo, mqConn, &cfg.Payment)

	api := app.Party("/api")

	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// ---------- 商品管理 ----------

	// 商品列表（后台用：返回所有商品）
	api.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListAll(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 创建商品
	api.Post("/products", func(ctx iris.Context) {
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if p.ID == "" || p.Name == "" {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "商品 ID 和名称不能为空"})
			return
		}
		if err := productSvc.Create(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// 更新商品
	api.Put("/products/{id}", func(ctx iris.Context) {
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		p.ID = ctx.Params().Get("id")
		if err := productSvc.Update(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// 删除商品
	api.Delete("/products/{id}", func(ctx iris.Context) {
		if err := productSvc.Delete(ctx.Request().Context(), ctx.Params().Get("id")); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// ---------- 用户管理 ----------

	api.Get("/users", func(ctx iris.Context) {
		list, err := userSvc.ListAll(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// ---------- 订单管理 ----------

	// 最近订单
	api.Get("/orders", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 50)
		list, err := orderSvc.ListRecent(ctx.Request().Context(), limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 订单详情
	api.Get("/orders/{number}", func(ctx iris.Context) {
		o, err := orderSvc.GetByOrderNumber(ctx.Request().Context(), ctx.Params().Get("number"))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "订单不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})

	// ---------- 超时订单清理 ----------

	sweepBucket := middleware.NewTokenBucket(10, 1)

	// 手动/定时触发清理。调度器头或 Bearer Token 二选一。
	api.Post("/orders/sweep", middleware.RateLimit(sweepBucket), func(ctx iris.Context) {
		if !sweepAuthorized(ctx, cfg.Payment.SweepToken) {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "未授权的清理请求"})
			return
		}

		cutoff := time.Now().Add(-cfg.Payment.PendingTimeout())
		result, err := sweepSvc.Sweep(ctx.Request().Context(), cutoff)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{
			"code": 0,
			"data": iris.Map{
				"success":        true,
				"processedCount": result.Processed,
				"errorCount":     result.Errors,
			},
		})
	})

	// ---------- 监控 ----------

	api.Get("/stats", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "data": service.GetMonitor().GetStats()})
	})
}

// sweepAuthorized 清理触发鉴权：调度器注入头，或配置的 Bearer Token
func sweepAuthorized(ctx iris.Context, token string) bool {
	if ctx.GetHeader(schedulerHeader) == "1" {
		return true
	}
	authz := ctx.GetHeader("Authorization")
	if token != "" && strings.TrimPrefix(authz, "Bearer ") == token {
		return true
	}
	return false
}
