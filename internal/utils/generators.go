package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// GenerateTransactionID produces IDs for inventory audit transactions.
func GenerateTransactionID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999999))
	return fmt.Sprintf("txn_%d_%09d", timestamp, randomNum.Int64())
}

// GenerateExpansionID produces IDs for inventory expansion records.
func GenerateExpansionID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("exp_%d_%06d", timestamp, randomNum.Int64())
}

// GenerateUsageID produces IDs for member discount usage records.
func GenerateUsageID() string {
	return "usage_" + uuid.New().String()
}

// GenerateResetID produces IDs for discount reset audit records.
func GenerateResetID() string {
	return "reset_" + uuid.New().String()
}
