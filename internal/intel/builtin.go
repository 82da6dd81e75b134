package intel

import "time"

// builtinThreats is the compiled-in known-bad domain seed used at cold
// start, before any distributed bundle has been loaded.
var builtinThreats = []string{
	"secure-paypal-login.tk",
	"appleid-verify.ml",
	"netflix-billing-update.ga",
	"microsoft-account-alert.cf",
	"chase-secure-portal.gq",
	"wallet-validation.top",
	"free-giftcard-claim.xyz",
	"qr-parking-pay.top",
	"package-redelivery-fee.xyz",
	"crypto-airdrop-claim.icu",
	"bank-id-renewal.click",
	"covid-pass-verify.cam",
}

// builtinBundle constructs the seed bundle installed in both loader
// slots at startup.
func builtinBundle() *Bundle {
	bf := NewBloomFilter(1024, 0.01)
	for _, d := range builtinThreats {
		bf.Add(d)
	}
	return &Bundle{
		Version:   Version{Major: 1, Minor: 0, Patch: 0},
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Threats:   bf,
		Config:    DefaultRiskConfig(),
	}
}
