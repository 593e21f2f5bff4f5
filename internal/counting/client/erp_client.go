// Package client talks to the Locador ERP over HTTP. It provides the stock
// snapshot used when an inventory opens, serial lookups for assets scanned
// outside the snapshot, and the stock commit that applies final quantities
// when an inventory closes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
)

// StockLine is one (product, location) stock level from the ERP
type StockLine struct {
	ProductID        string `json:"product_id"`
	LocationID       string `json:"location_id"`
	CategoryID       string `json:"category_id"`
	Quantity         int    `json:"quantity"`
	SerialControlled bool   `json:"serial_controlled"`
}

// Asset is one serialized unit known to the ERP asset registry
type Asset struct {
	SerialNumber string `json:"serial_number"`
	ProductID    string `json:"product_id"`
	LocationID   string `json:"location_id"`
	CategoryID   string `json:"category_id"`
}

// CommitLine is one final quantity applied back to ERP stock
type CommitLine struct {
	ProductID     string `json:"product_id"`
	LocationID    string `json:"location_id"`
	FinalQuantity int    `json:"final_quantity"`
}

// SnapshotFilter narrows the snapshot to the inventory's scope. Empty slices
// mean no filtering on that axis.
type SnapshotFilter struct {
	LocationIDs []string `json:"location_ids,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}

// ERPClient provides the HTTP client for the Locador ERP
type ERPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewERPClient creates a new ERP client
func NewERPClient(baseURL string, timeout time.Duration, log *logger.Logger) *ERPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ERPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Snapshot fetches the current stock levels matching the filter. Called once
// when an inventory opens; counting never re-reads live stock afterwards.
func (c *ERPClient) Snapshot(ctx context.Context, filter SnapshotFilter) ([]StockLine, error) {
	payload, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot filter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/stock/snapshot", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info().
		Int("locations", len(filter.LocationIDs)).
		Int("categories", len(filter.CategoryIDs)).
		Msg("fetching stock snapshot from ERP")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to call ERP stock snapshot")
		return nil, fmt.Errorf("failed to call ERP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("stock snapshot failed with status %d: %v", resp.StatusCode, errResp)
	}

	var response struct {
		Success bool        `json:"success"`
		Data    []StockLine `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info().Int("lines", len(response.Data)).Msg("stock snapshot received")
	return response.Data, nil
}

// ListAssets fetches the serialized assets matching the filter, used to build
// the serial rows of the snapshot
func (c *ERPClient) ListAssets(ctx context.Context, filter SnapshotFilter) ([]Asset, error) {
	payload, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal asset filter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/assets/search", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ERP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("asset search failed with status %d: %v", resp.StatusCode, errResp)
	}

	var response struct {
		Success bool    `json:"success"`
		Data    []Asset `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return response.Data, nil
}

// LookupSerial resolves a serial number scanned during counting that is not
// part of the snapshot. A registry miss maps to UnknownSerial so handlers can
// answer 404 without inspecting transport detail.
func (c *ERPClient) LookupSerial(ctx context.Context, serialNumber string) (*Asset, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/assets/"+serialNumber, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("serial_number", serialNumber).Msg("looking up serial in asset registry")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ERP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.UnknownSerial(serialNumber)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("serial lookup failed with status %d: %v", resp.StatusCode, errResp)
	}

	var response struct {
		Success bool  `json:"success"`
		Data    Asset `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &response.Data, nil
}

// CommitStock applies the final quantities to ERP stock. The ERP treats the
// call as transactional: either every line applies or none do.
func (c *ERPClient) CommitStock(ctx context.Context, inventoryID string, lines []CommitLine) error {
	body := struct {
		InventoryID string       `json:"inventory_id"`
		Lines       []CommitLine `json:"lines"`
	}{InventoryID: inventoryID, Lines: lines}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal commit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/stock/commit", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info().
		Str("inventory_id", inventoryID).
		Int("lines", len(lines)).
		Msg("committing final quantities to ERP stock")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to call ERP stock commit")
		return fmt.Errorf("failed to call ERP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return errors.AlreadyMigrated(inventoryID)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Interface("error", errResp).
			Msg("stock commit failed")
		return fmt.Errorf("stock commit failed with status %d: %v", resp.StatusCode, errResp)
	}

	c.logger.Info().Str("inventory_id", inventoryID).Msg("stock commit accepted")
	return nil
}
