package app

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
)

// Fingerprint derives the cache key of a validated request. Wallet and client
// are excluded so identical market requests share an entry.
func Fingerprint(req domain.NormalizedRequest) string {
	gas := string(req.GasPrice.Preset)
	if req.GasPrice.IsExplicit() {
		gas = "wei:" + req.GasPrice.Wei.String()
	}

	fields := []string{
		req.From.ID().String(),
		req.To.ID().String(),
		strconv.FormatUint(req.From.ChainID(), 10),
		strconv.FormatUint(req.To.ChainID(), 10),
		req.Amount.RawString(),
		req.PreferredProvider,
		string(req.Preference),
		gas,
	}

	// Length-prefix each field so adjacent values cannot run together.
	var buf []byte
	for _, f := range fields {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(f)))
		buf = append(buf, f...)
	}
	return hex.EncodeToString(crypto.Keccak256(buf))
}
