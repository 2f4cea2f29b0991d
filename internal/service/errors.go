package service

import "errors"

// 错误分级：
//   - ErrInvalidRequest  调用方输入缺失/非法，4xx，不产生任何写入
//   - ErrOrderNotFound   引用的订单不存在，记日志后照常应答
//   - ErrSignatureInvalid 回调验签失败，必须与"支付失败"严格区分：
//     前者是疑似伪造，绝不落任何状态；后者是合法的业务结果
//
// 网关侧错误见 payment.GatewayError（透传 message，不自动重试）。
var (
	ErrInvalidRequest    = errors.New("请求参数缺失或非法")
	ErrOrderNotFound     = errors.New("订单不存在")
	ErrSignatureInvalid  = errors.New("回调签名校验失败")
	ErrProductNotFound   = errors.New("商品不存在")
	ErrInsufficientStock = errors.New("库存不足")
)
