package curve

// ethPlaceholder is the address curve pools use for raw ETH.
const ethPlaceholder = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// MetaPoolABI covers the underlying-coin exchange of a metapool.
const MetaPoolABI = `[
	{
		"stateMutability": "view",
		"type": "function",
		"name": "get_dy_underlying",
		"inputs": [
			{"name": "i", "type": "int128"},
			{"name": "j", "type": "int128"},
			{"name": "dx", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"stateMutability": "nonpayable",
		"type": "function",
		"name": "exchange_underlying",
		"inputs": [
			{"name": "i", "type": "int128"},
			{"name": "j", "type": "int128"},
			{"name": "_dx", "type": "uint256"},
			{"name": "_min_dy", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

// PlainPoolABI covers a two-coin pool, payable for ETH legs.
const PlainPoolABI = `[
	{
		"stateMutability": "view",
		"type": "function",
		"name": "get_dy",
		"inputs": [
			{"name": "i", "type": "int128"},
			{"name": "j", "type": "int128"},
			{"name": "dx", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"stateMutability": "payable",
		"type": "function",
		"name": "exchange",
		"inputs": [
			{"name": "i", "type": "int128"},
			{"name": "j", "type": "int128"},
			{"name": "_dx", "type": "uint256"},
			{"name": "_min_dy", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

// RouterABI covers multi-pool routes through the curve registry router.
const RouterABI = `[
	{
		"stateMutability": "view",
		"type": "function",
		"name": "get_exchange_multiple_amount",
		"inputs": [
			{"name": "_route", "type": "address[9]"},
			{"name": "_swap_params", "type": "uint256[3][4]"},
			{"name": "_amount", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"stateMutability": "payable",
		"type": "function",
		"name": "exchange_multiple",
		"inputs": [
			{"name": "_route", "type": "address[9]"},
			{"name": "_swap_params", "type": "uint256[3][4]"},
			{"name": "_amount", "type": "uint256"},
			{"name": "_expected", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`
