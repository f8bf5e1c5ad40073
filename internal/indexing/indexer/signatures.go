package indexer

// methodNames maps well-known 4-byte selectors to readable names.
// Lookup is best-effort; unknown selectors keep the raw hex id.
var methodNames = map[string]string{
	"0xa9059cbb": "transfer",
	"0x23b872dd": "transferFrom",
	"0x095ea7b3": "approve",
	"0x70a08231": "balanceOf",
	"0x18160ddd": "totalSupply",
	"0xdd62ed3e": "allowance",
	"0x42842e0e": "safeTransferFrom",
	"0xb88d4fde": "safeTransferFrom",
	"0xf242432a": "safeTransferFrom",
	"0x2eb2c2d6": "safeBatchTransferFrom",
	"0xa22cb465": "setApprovalForAll",
	"0x40c10f19": "mint",
	"0xa0712d68": "mint",
	"0x42966c68": "burn",
	"0xd0e30db0": "deposit",
	"0x2e1a7d4d": "withdraw",
	"0x7ff36ab5": "swapExactETHForTokens",
	"0x38ed1739": "swapExactTokensForTokens",
	"0x18cbafe5": "swapExactTokensForETH",
	"0x5ae401dc": "multicall",
	"0xac9650d8": "multicall",
	"0xe8e33700": "addLiquidity",
	"0xf305d719": "addLiquidityETH",
	"0xbaa2abde": "removeLiquidity",
	"0x022c0d9f": "swap",
	"0x128acb08": "swap",
	"0x3593564c": "execute",
	"0x1249c58b": "mint",
	"0x6a627842": "mint",
	"0xa694fc3a": "stake",
	"0x2e17de78": "unstake",
	"0xb6b55f25": "deposit",
	"0x441a3e70": "withdraw",
	"0x4e71d92d": "claim",
}

// methodName resolves a selector, falling back to the selector itself.
func methodName(selector string) string {
	if name, ok := methodNames[selector]; ok {
		return name
	}
	return selector
}
