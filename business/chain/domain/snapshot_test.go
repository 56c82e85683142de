package domain_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSpender = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestAccountSnapshot_Lookups(t *testing.T) {
	snap := domain.EmptySnapshot(testAccount)
	snap.Balances[asset.DAI.ID()] = asset.NewAmount(asset.DAI, big.NewInt(1e18))
	snap.Allowances[asset.DAI.ID()] = map[common.Address]asset.Amount{
		testSpender: asset.NewAmount(asset.DAI, big.NewInt(5e17)),
	}

	bal, ok := snap.Balance(asset.DAI)
	if !ok || bal.Raw().Cmp(big.NewInt(1e18)) != 0 {
		t.Errorf("balance = %v %v", bal, ok)
	}
	if _, ok := snap.Balance(asset.USDC); ok {
		t.Error("untracked balance reported present")
	}

	allow, ok := snap.Allowance(asset.DAI, testSpender)
	if !ok || allow.Raw().Cmp(big.NewInt(5e17)) != 0 {
		t.Errorf("allowance = %v %v", allow, ok)
	}
	if _, ok := snap.Allowance(asset.DAI, testAccount); ok {
		t.Error("unknown spender reported present")
	}
	if _, ok := snap.Allowance(asset.USDC, testSpender); ok {
		t.Error("untracked token allowance reported present")
	}
}

func TestAccountSnapshot_NilSafety(t *testing.T) {
	var snap *domain.AccountSnapshot
	if _, ok := snap.Balance(asset.DAI); ok {
		t.Error("nil snapshot returned a balance")
	}
	if _, ok := snap.Allowance(asset.DAI, testSpender); ok {
		t.Error("nil snapshot returned an allowance")
	}

	filled := domain.EmptySnapshot(testAccount)
	if _, ok := filled.Balance(nil); ok {
		t.Error("nil asset returned a balance")
	}
}

func TestAccountSnapshot_Age(t *testing.T) {
	snap := domain.EmptySnapshot(testAccount)
	snap.UpdatedAt = time.Now().Add(-3 * time.Second)
	if age := snap.Age(); age < 3*time.Second || age > 10*time.Second {
		t.Errorf("age = %s", age)
	}
}
