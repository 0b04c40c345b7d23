package vault

import "github.com/holiman/uint256"

// ClaimRewards forwards the market's reward claim for the vault's position
// and sweeps the resulting reward-token balance to the configured recipient.
// The swept amount is returned.
func (v *Vault) ClaimRewards() (*uint256.Int, error) {
	if v.rewardToken == nil {
		return nil, ErrNoRewardRoute
	}
	v.mkt.ClaimRewards(v.addr)

	amount := new(uint256.Int).Set(v.rewardToken.BalanceOf(v.addr))
	if amount.IsZero() {
		return amount, nil
	}
	if err := v.rewardToken.Transfer(v.addr, v.rewardRecipient, amount); err != nil {
		return nil, err
	}
	v.logger.Info("vault rewards swept",
		"recipient", v.rewardRecipient.Hex(),
		"amount", amount.Dec(),
	)
	return amount, nil
}
