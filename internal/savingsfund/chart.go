package savingsfund

import (
	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/ledger/service"
)

// SystemAccount names an ownerless account of the fund's chart
type SystemAccount string

const (
	IncomingPaymentsClearing   SystemAccount = "INCOMING_PAYMENTS_CLEARING"
	UnreconciledBankReceipts   SystemAccount = "UNRECONCILED_BANK_RECEIPTS"
	FundInvestmentCashClearing SystemAccount = "FUND_INVESTMENT_CASH_CLEARING"
	FundUnitsOutstanding       SystemAccount = "FUND_UNITS_OUTSTANDING"
	FundSubscriptionsPayable   SystemAccount = "FUND_SUBSCRIPTIONS_PAYABLE"
	RedemptionPayable          SystemAccount = "REDEMPTION_PAYABLE"
	PayoutsCashClearing        SystemAccount = "PAYOUTS_CASH_CLEARING"
	ManagementFeeAccrual       SystemAccount = "MANAGEMENT_FEE_ACCRUAL"
	DepotFeeAccrual            SystemAccount = "DEPOT_FEE_ACCRUAL"
	NavEquity                  SystemAccount = "NAV_EQUITY"
	BankFee                    SystemAccount = "BANK_FEE"
	BankInterest               SystemAccount = "BANK_INTEREST"
	BankAdjustment             SystemAccount = "BANK_ADJUSTMENT"
	SecuritiesValue            SystemAccount = "SECURITIES_VALUE"
	SecuritiesUnits            SystemAccount = "SECURITIES_UNITS"
	SecuritiesUnitsEquity      SystemAccount = "SECURITIES_UNITS_EQUITY"
	CashPosition               SystemAccount = "CASH_POSITION"
	TradeReceivables           SystemAccount = "TRADE_RECEIVABLES"
	TradePayables              SystemAccount = "TRADE_PAYABLES"
)

var systemAccounts = map[SystemAccount]accountClass{
	IncomingPaymentsClearing:   {ledger.AccountTypeAsset, ledger.AssetTypeEUR},
	UnreconciledBankReceipts:   {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	FundInvestmentCashClearing: {ledger.AccountTypeAsset, ledger.AssetTypeEUR},
	FundUnitsOutstanding:       {ledger.AccountTypeLiability, ledger.AssetTypeFundUnit},
	FundSubscriptionsPayable:   {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	RedemptionPayable:          {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	PayoutsCashClearing:        {ledger.AccountTypeAsset, ledger.AssetTypeEUR},
	ManagementFeeAccrual:       {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	DepotFeeAccrual:            {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	NavEquity:                  {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	BankFee:                    {ledger.AccountTypeExpense, ledger.AssetTypeEUR},
	BankInterest:               {ledger.AccountTypeIncome, ledger.AssetTypeEUR},
	BankAdjustment:             {ledger.AccountTypeAsset, ledger.AssetTypeEUR},
	SecuritiesValue:            {ledger.AccountTypeAsset, ledger.AssetTypeEUR},
	SecuritiesUnits:            {ledger.AccountTypeAsset, ledger.AssetTypeFundUnit},
	SecuritiesUnitsEquity:      {ledger.AccountTypeLiability, ledger.AssetTypeFundUnit},
	CashPosition:               {ledger.AccountTypeAsset, ledger.AssetTypeEUR},
	TradeReceivables:           {ledger.AccountTypeAsset, ledger.AssetTypeEUR},
	TradePayables:              {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
}

// UserAccount names an account every customer gets on first use
type UserAccount string

const (
	UserCash              UserAccount = "CASH"
	UserCashReserved      UserAccount = "CASH_RESERVED"
	UserCashRedemption    UserAccount = "CASH_REDEMPTION"
	UserFundUnits         UserAccount = "FUND_UNITS"
	UserFundUnitsReserved UserAccount = "FUND_UNITS_RESERVED"
	UserSubscriptions     UserAccount = "SUBSCRIPTIONS"
	UserRedemptions       UserAccount = "REDEMPTIONS"
)

var userAccounts = map[UserAccount]accountClass{
	UserCash:              {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	UserCashReserved:      {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	UserCashRedemption:    {ledger.AccountTypeLiability, ledger.AssetTypeEUR},
	UserFundUnits:         {ledger.AccountTypeLiability, ledger.AssetTypeFundUnit},
	UserFundUnitsReserved: {ledger.AccountTypeLiability, ledger.AssetTypeFundUnit},
	UserSubscriptions:     {ledger.AccountTypeIncome, ledger.AssetTypeEUR},
	UserRedemptions:       {ledger.AccountTypeExpense, ledger.AssetTypeEUR},
}

type accountClass struct {
	accountType ledger.AccountType
	assetType   ledger.AssetType
}

// Spec returns the account's name and classification
func (a SystemAccount) Spec() service.AccountSpec {
	c := systemAccounts[a]
	return service.AccountSpec{Name: string(a), AccountType: c.accountType, AssetType: c.assetType}
}

// Spec returns the account's name and classification
func (a UserAccount) Spec() service.AccountSpec {
	c := userAccounts[a]
	return service.AccountSpec{Name: string(a), AccountType: c.accountType, AssetType: c.assetType}
}

// FeeType selects the accrual account of a fund fee
type FeeType string

const (
	FeeManagement FeeType = "MANAGEMENT"
	FeeDepot      FeeType = "DEPOT"
)

func (f FeeType) accrualAccount() (SystemAccount, bool) {
	switch f {
	case FeeManagement:
		return ManagementFeeAccrual, true
	case FeeDepot:
		return DepotFeeAccrual, true
	}
	return "", false
}

// BankAdjustmentType classifies a bank statement line that is not a customer payment
type BankAdjustmentType string

const (
	BankAdjustmentFee        BankAdjustmentType = "FEE"
	BankAdjustmentInterest   BankAdjustmentType = "INTEREST"
	BankAdjustmentCorrection BankAdjustmentType = "ADJUSTMENT"
)

func (b BankAdjustmentType) account() (SystemAccount, bool) {
	switch b {
	case BankAdjustmentFee:
		return BankFee, true
	case BankAdjustmentInterest:
		return BankInterest, true
	case BankAdjustmentCorrection:
		return BankAdjustment, true
	}
	return "", false
}

// positionCounterparts maps each NAV position account to the account absorbing its changes
var positionCounterparts = map[SystemAccount]SystemAccount{
	SecuritiesValue:          NavEquity,
	CashPosition:             NavEquity,
	TradeReceivables:         NavEquity,
	TradePayables:            NavEquity,
	RedemptionPayable:        NavEquity,
	FundSubscriptionsPayable: NavEquity,
	SecuritiesUnits:          SecuritiesUnitsEquity,
}
