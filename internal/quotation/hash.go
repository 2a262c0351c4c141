package quotation

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentHash derives the natural identifier of a finalized quotation from
// its line items, total and company details. MD5 is used as a cheap stable
// fingerprint, not for security; collisions are accepted.
func ContentHash(items []LineItem, total float64, details CompanyDetails) string {
	itemsJSON, _ := json.Marshal(items)
	detailsJSON, _ := json.Marshal(details)
	sum := md5.Sum([]byte(string(itemsJSON) + fmt.Sprintf("%.2f", total) + string(detailsJSON)))
	return hex.EncodeToString(sum[:])
}

// FallbackHash makes a history row addressable when its stored hash cell is
// blank, deriving a deterministic value from fields every row has.
func FallbackHash(companyName, timestamp string, total float64) string {
	sum := md5.Sum([]byte(companyName + "|" + timestamp + "|" + fmt.Sprintf("%.2f", total)))
	return hex.EncodeToString(sum[:])
}
