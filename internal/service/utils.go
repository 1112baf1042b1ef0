package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/repository"
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

func encodeMetadata(v map[string]any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func entityTypeForTable(table string) string {
	switch table {
	case repository.EntityRedeemRequests:
		return domain.EntityRedeem
	case repository.EntityRechargeRequests:
		return domain.EntityRecharge
	case repository.EntityTransferRequests:
		return domain.EntityTransfer
	}
	return table
}

func listParams(status string, limit, offset int32) repository.ListParams {
	return repository.ListParams{Status: strings.ToLower(strings.TrimSpace(status)), Limit: limit, Offset: offset}
}
