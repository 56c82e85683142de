package vault

// VaultABI covers the mint/redeem surface of the protocol vault plus
// the views the estimator quotes with.
const VaultABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "_asset", "type": "address"},
			{"internalType": "uint256", "name": "_amount", "type": "uint256"},
			{"internalType": "uint256", "name": "_minimumOusdAmount", "type": "uint256"}
		],
		"name": "mint",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "_amount", "type": "uint256"},
			{"internalType": "uint256", "name": "_minimumUnitAmount", "type": "uint256"}
		],
		"name": "redeem",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "_minimumUnitAmount", "type": "uint256"}
		],
		"name": "redeemAll",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "_amount", "type": "uint256"}
		],
		"name": "calculateRedeemOutputs",
		"outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getAllAssets",
		"outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"}
		],
		"name": "priceUnitMint",
		"outputs": [{"internalType": "uint256", "name": "price", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
