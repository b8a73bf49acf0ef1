package constant

// OrderStatus 订单状态
type OrderStatus int

const (
	StatusWaitPay    OrderStatus = 1 // 等待支付
	StatusPaySuccess OrderStatus = 2 // 支付成功
	StatusExpired    OrderStatus = 3 // 已过期
)

func (s OrderStatus) String() string {
	switch s {
	case StatusWaitPay:
		return "waiting"
	case StatusPaySuccess:
		return "success"
	case StatusExpired:
		return "timeout"
	default:
		return "unknown"
	}
}

// IsFinal 成功和过期都是终态
func (s OrderStatus) IsFinal() bool {
	return s == StatusPaySuccess || s == StatusExpired
}

// TradeType 支付类型
type TradeType string

const (
	TradeTypeUsdtTrc20    TradeType = "usdt.trc20"
	TradeTypeUsdtErc20    TradeType = "usdt.erc20"
	TradeTypeUsdtPolygon  TradeType = "usdt.polygon"
	TradeTypeUsdtBep20    TradeType = "usdt.bep20"
	TradeTypeUsdtArbitrum TradeType = "usdt.arbitrum"
	TradeTypeUsdtSolana   TradeType = "usdt.solana"
	TradeTypeUsdtAptos    TradeType = "usdt.aptos"
	TradeTypeUsdtXlayer   TradeType = "usdt.xlayer"
	TradeTypeUsdcTrc20    TradeType = "usdc.trc20"
	TradeTypeUsdcErc20    TradeType = "usdc.erc20"
	TradeTypeUsdcPolygon  TradeType = "usdc.polygon"
	TradeTypeUsdcBep20    TradeType = "usdc.bep20"
	TradeTypeUsdcArbitrum TradeType = "usdc.arbitrum"
	TradeTypeUsdcSolana   TradeType = "usdc.solana"
	TradeTypeUsdcBase     TradeType = "usdc.base"
	TradeTypeTronTrx      TradeType = "tron.trx"

	DefaultTradeType = TradeTypeUsdtTrc20
)

var tradeTypes = map[TradeType]struct{}{
	TradeTypeUsdtTrc20: {}, TradeTypeUsdtErc20: {}, TradeTypeUsdtPolygon: {}, TradeTypeUsdtBep20: {},
	TradeTypeUsdtArbitrum: {}, TradeTypeUsdtSolana: {}, TradeTypeUsdtAptos: {}, TradeTypeUsdtXlayer: {},
	TradeTypeUsdcTrc20: {}, TradeTypeUsdcErc20: {}, TradeTypeUsdcPolygon: {}, TradeTypeUsdcBep20: {},
	TradeTypeUsdcArbitrum: {}, TradeTypeUsdcSolana: {}, TradeTypeUsdcBase: {}, TradeTypeTronTrx: {},
}

// Known 是否为已知支付类型
func (t TradeType) Known() bool {
	_, ok := tradeTypes[t]
	return ok
}

// 网关接口路径
const (
	PathCreateTransaction = "/api/v1/order/create-transaction"
	PathCancelTransaction = "/api/v1/order/cancel-transaction"
	PathCheckStatus       = "/pay/check-status/"
)

// SuccessStatusCode 网关响应信封中的成功码
const SuccessStatusCode = 200
