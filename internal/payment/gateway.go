package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
)

// CreateResponse 网关下单成功后的返回
type CreateResponse struct {
	CheckoutURL string `json:"checkout_url"`
	PaymentID   string `json:"payment_id"`
}

// GatewayError 网关拒绝或处理失败，message 原样透传给调用方，不自动重试
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return "payment gateway error: " + e.Message
}

// Gateway 下单通道抽象，便于测试替换
type Gateway interface {
	Create(ctx context.Context, params map[string]string) (*CreateResponse, error)
}

// Client 支付网关 HTTP 客户端
type Client struct {
	gatewayURL string
	httpClient *http.Client
}

// NewClient 创建网关客户端，出站调用必须有超时，
// 网关卡死不能无限占用 worker。
func NewClient(cfg *config.PaymentConfig) *Client {
	return &Client{
		gatewayURL: cfg.GatewayURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// gatewayEnvelope 网关统一返回包
type gatewayEnvelope struct {
	Status      string `json:"status"` // success / error
	Message     string `json:"message"`
	CheckoutURL string `json:"checkout_url"`
	PaymentID   string `json:"payment_id"`
}

// Create 提交签名后的下单请求（表单编码），返回收银台地址
func (c *Client) Create(ctx context.Context, params map[string]string) (*CreateResponse, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Message: err.Error()}
	}

	var env gatewayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &GatewayError{Message: fmt.Sprintf("非法的网关响应: %v", err)}
	}
	if resp.StatusCode != http.StatusOK || env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return nil, &GatewayError{Message: msg}
	}
	if env.CheckoutURL == "" || env.PaymentID == "" {
		return nil, &GatewayError{Message: "网关响应缺少 checkout_url 或 payment_id"}
	}
	return &CreateResponse{CheckoutURL: env.CheckoutURL, PaymentID: env.PaymentID}, nil
}
