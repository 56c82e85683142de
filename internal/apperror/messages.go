package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeTransactionRejected:      "Transaction rejected by signer",
	CodeSignerUnavailable:        "No transaction signer available",

	CodeInvalidAmount:       "Invalid swap amount",
	CodeVenueUnsupported:    "Venue cannot serve this swap",
	CodeQuoteFailed:         "Failed to get venue quote",
	CodeRouteNotFound:       "No route found for token pair",
	CodePriceSanityBreached: "Quoted price breaches sanity ceiling",
	CodeInsufficientBalance: "Wallet balance insufficient",
	CodeLiquidityError:      "Venue lacks liquidity for this swap",
	CodeNoEligibleRoute:     "No eligible route for this swap",
	CodeStaleRound:          "Estimation round superseded",

	CodePriceFeedFailed:   "Price feed query failed",
	CodePriceFeedStale:    "Price feed data is stale",
	CodePriceAPIError:     "Price API request failed",
	CodePriceStreamClosed: "Price stream closed",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
