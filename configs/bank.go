package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// BankInfo is the receiving account printed on transfer QR codes.
// See https://qr.sepay.vn/banks.json for bank codes.
type BankInfo struct {
	BankCode      string `yaml:"bankCode"`
	AccountNumber string `yaml:"accountNumber"`
	AccountName   string `yaml:"accountName"`
	Template      string `yaml:"template"` // compact | qronly
}

// LoadBankInfo reads path as YAML when given, otherwise falls back to env vars.
func LoadBankInfo(path string) (BankInfo, error) {
	info := BankInfo{
		BankCode:      getEnv("BANK_CODE", "MB"),
		AccountNumber: os.Getenv("BANK_ACCOUNT_NUMBER"),
		AccountName:   os.Getenv("BANK_ACCOUNT_NAME"),
		Template:      getEnv("BANK_QR_TEMPLATE", "compact"),
	}
	if path == "" {
		return info, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return BankInfo{}, err
	}
	if err := yaml.Unmarshal(data, &info); err != nil {
		return BankInfo{}, err
	}
	if info.Template == "" {
		info.Template = "compact"
	}
	return info, nil
}
