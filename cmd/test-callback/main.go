package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/payment"
)

// 本地调试工具：对指定订单构造一条签名合法（或故意篡改）的网关回调，
// 直接打到本地回调端点，验证落账和幂等行为。
func main() {
	var (
		orderNumber = flag.String("order", "", "订单号（必填）")
		paymentID   = flag.String("payment", "PAY-TEST-1", "网关支付单号")
		amount      = flag.Int64("amount", 1000, "金额（最小货币单位）")
		currency    = flag.String("currency", "USD", "币种")
		fail        = flag.Bool("fail", false, "模拟支付失败回调")
		tamper      = flag.Bool("tamper", false, "发送篡改签名，应被拒绝且订单不变")
		endpoint    = flag.String("endpoint", "http://127.0.0.1:8080/api/payment/callback", "回调地址")
	)
	flag.Parse()

	if *orderNumber == "" {
		log.Fatal("usage: test-callback -order <orderNumber> [-fail] [-tamper]")
	}

	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	orderStatus := "approved"
	responseStatus := "success"
	if *fail {
		orderStatus = "declined"
		responseStatus = "failure"
	}

	params := map[string]any{
		"order_id":        *orderNumber,
		"order_status":    orderStatus,
		"payment_id":      *paymentID,
		"amount":          *amount,
		"currency":        *currency,
		"response_status": responseStatus,
	}
	sig := payment.Sign(params, cfg.Payment.Secret)
	if *tamper {
		// 翻转第一个字符，保持长度不变
		if sig[0] == 'a' {
			sig = "b" + sig[1:]
		} else {
			sig = "a" + sig[1:]
		}
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, fmt.Sprint(v))
	}
	form.Set("signature", sig)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(*endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		log.Fatalf("callback request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status: %s\nbody:   %s\n", resp.Status, string(body))
}
