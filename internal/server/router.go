package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/auth"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/infra/mq"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/infra/redis"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/middleware"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/payment"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/repository/mysql"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/service"
)

// RegisterRoutes 注册所有前台 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(db, orderRepo)
	paymentSvc := service.NewPaymentService(orderRepo, payment.NewClient(&cfg.Payment), &cfg.Payment)
	callbackSvc := service.NewCallbackService(orderRepo, redisClient, mqConn, &cfg.Payment)

	// JWT 解析结果缓存
	ring := auth.NewShardRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"code": 0,
			"msg":  "ok",
		})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Username, req.Email, req.Password)
		if err != nil {
			code := 500
			if errors.Is(err, service.ErrInvalidRequest) {
				code = 400
			}
			ctx.StopWithJSON(code, iris.Map{"code": code, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": u})
	})

	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token}})
	})

	// ---------------- 支付回调（无鉴权，验签代替） ----------------

	// 回调限流：挡掉网关异常重试风暴
	callbackBucket := middleware.NewTokenBucket(100, 50)

	callbackHandler := func(ctx iris.Context) {
		payload := collectCallbackPayload(ctx)
		if len(payload) == 0 {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "无法解析回调载荷"})
			return
		}

		result, err := callbackSvc.HandleCallback(ctx.Request().Context(), payload)
		if err != nil {
			// 参数硬错误（缺 order_id 等）才允许 4xx
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		// 其余所有分支都应答 200，内部结论只进日志和返回体
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"outcome": result.Outcome}})
	}
	api.Get("/payment/callback", middleware.RateLimit(callbackBucket), callbackHandler)
	api.Post("/payment/callback", middleware.RateLimit(callbackBucket), callbackHandler)

	// ---------------- 需要登录的接口 ----------------

	authAPI := api.Party("/", func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		// 先查缓存，未命中再解析并回填
		claims, hit, err := tokenCache.Get(ctx.Request().Context(), token)
		if err != nil || !hit {
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
				return
			}
			_ = tokenCache.Set(ctx.Request().Context(), token, claims)
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Next()
	})

	// 当前登录用户
	authAPI.Get("/me", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		u, err := userSvc.GetByID(ctx.Request().Context(), userID)
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "用户不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": u})
	})

	// 商品列表（支持按分类筛选与名称搜索）
	authAPI.Get("/products", func(ctx iris.Context) {
		category := ctx.URLParam("category")
		keyword := ctx.URLParam("q")
		list, err := productSvc.ListByCategory(ctx.Request().Context(), category)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		if keyword != "" {
			kw := strings.ToLower(keyword)
			filtered := list[:0]
			for _, p := range list {
				if strings.Contains(strings.ToLower(p.Name), kw) {
					filtered = append(filtered, p)
				}
			}
			list = filtered
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 商品详情
	authAPI.Get("/products/{id}", func(ctx iris.Context) {
		p, err := productSvc.GetByID(ctx.Request().Context(), ctx.Params().Get("id"))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "商品不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// 规格库存查询（下单前确认尺码/颜色是否有货）
	authAPI.Get("/products/{id}/variants/{vid}", func(ctx iris.Context) {
		v, err := productSvc.GetVariant(ctx.Request().Context(),
			ctx.Params().Get("id"), ctx.Params().Get("vid"))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "规格不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"variant_id": v.ID,
			"name":       v.Name,
			"in_stock":   v.Stock > 0,
			"stock":      v.Stock,
		}})
	})

	// 下单（扣库存 + 建单，订单落为 pending）
	authAPI.Post("/checkout", func(ctx iris.Context) {
		var req struct {
			Items    []service.CheckoutItem `json:"items"`
			Currency string                 `json:"currency"`
			Email    string                 `json:"email"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		userID := ctx.Values().GetInt64Default("user_id", 0)
		o, err := orderSvc.CreateOrder(ctx.Request().Context(), userID, req.Email, req.Currency, req.Items)
		if err != nil {
			code := 500
			if errors.Is(err, service.ErrInvalidRequest) || errors.Is(err, service.ErrInsufficientStock) {
				code = 400
			} else if errors.Is(err, service.ErrProductNotFound) {
				code = 404
			}
			ctx.StopWithJSON(code, iris.Map{"code": code, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})

	// 发起支付：返回收银台地址，订单状态不在这里变
	authAPI.Post("/payment/create", func(ctx iris.Context) {
		var req struct {
			OrderNumber   string  `json:"order_number"`
			Amount        float64 `json:"amount"` // 主货币单位
			Currency      string  `json:"currency"`
			CustomerEmail string  `json:"customer_email"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		resp, err := paymentSvc.CreatePayment(ctx.Request().Context(), req.OrderNumber, req.Amount, req.Currency, req.CustomerEmail)
		if err != nil {
			var gwErr *payment.GatewayError
			switch {
			case errors.Is(err, service.ErrInvalidRequest):
				ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			case errors.Is(err, service.ErrOrderNotFound):
				ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": err.Error()})
			case errors.As(err, &gwErr):
				ctx.StopWithJSON(502, iris.Map{"code": 502, "msg": gwErr.Message})
			default:
				ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			}
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"checkout_url": resp.CheckoutURL,
			"payment_id":   resp.PaymentID,
		}})
	})

	// 我的订单
	authAPI.Get("/orders", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		list, err := orderSvc.ListByUser(ctx.Request().Context(), userID)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 订单详情（只允许查自己的）
	authAPI.Get("/orders/{number}", func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		o, err := orderSvc.GetByOrderNumber(ctx.Request().Context(), ctx.Params().Get("number"))
		if err != nil || o.UserID != userID {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "订单不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})
}

// collectCallbackPayload 不管网关用哪种方式投递（查询串 / 表单 / JSON 体），
// 都拍平成一个字符串映射交给回调服务
func collectCallbackPayload(ctx iris.Context) map[string]string {
	payload := map[string]string{}

	for k, vs := range ctx.Request().URL.Query() {
		if len(vs) > 0 {
			payload[k] = vs[0]
		}
	}

	contentType := ctx.GetContentTypeRequested()
	if strings.Contains(contentType, "json") {
		var body map[string]any
		if err := ctx.ReadJSON(&body); err == nil {
			for k, v := range body {
				switch t := v.(type) {
				case string:
					payload[k] = t
				case float64:
					// JSON 数字统一按签名侧的十进制规则渲染
					payload[k] = strconv.FormatFloat(t, 'f', -1, 64)
				default:
					b, _ := json.Marshal(t)
					payload[k] = string(b)
				}
			}
		}
	} else {
		if err := ctx.Request().ParseForm(); err == nil {
			for k, vs := range ctx.Request().PostForm {
				if len(vs) > 0 {
					payload[k] = vs[0]
				}
			}
		}
	}
	return payload
}
