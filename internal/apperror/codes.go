package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain access error codes
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeTransactionRejected      Code = "TRANSACTION_REJECTED"
	CodeSignerUnavailable        Code = "SIGNER_UNAVAILABLE"
)

// Swap routing error codes
const (
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeVenueUnsupported    Code = "VENUE_UNSUPPORTED"
	CodeQuoteFailed         Code = "QUOTE_FAILED"
	CodeRouteNotFound       Code = "ROUTE_NOT_FOUND"
	CodePriceSanityBreached Code = "PRICE_SANITY_BREACHED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeLiquidityError      Code = "LIQUIDITY_ERROR"
	CodeNoEligibleRoute     Code = "NO_ELIGIBLE_ROUTE"
	CodeStaleRound          Code = "STALE_ROUND"
)

// Price feed error codes
const (
	CodePriceFeedFailed   Code = "PRICE_FEED_FAILED"
	CodePriceFeedStale    Code = "PRICE_FEED_STALE"
	CodePriceAPIError     Code = "PRICE_API_ERROR"
	CodePriceStreamClosed Code = "PRICE_STREAM_CLOSED"
)

// WebSocket error codes
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
)

// Circuit breaker error codes
const (
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
