package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront-cart/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and inserts/updates products by SKU.
// Expected columns: id,sku,name,description,image_url,price,stock_quantity,track_quantity,is_active.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logger.Named("importer"),
	}
}

var requiredColumns = []string{"sku", "name", "price"}

// Run parses CSV rows and upserts one product per row. It stops at the first
// invalid row and reports how many rows were imported before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing required column %q", col)
		}
	}

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		p, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if p == nil {
			continue
		}
		if _, err := i.productRepo.Upsert(ctx, *p); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.SKU, err)
		}
		imported++
		i.logger.Debug("product imported", zap.String("sku", p.SKU), zap.Int("line", line))
	}

	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns nil for blank rows.
func parseRow(record []string, index map[string]int) (*domain.Product, error) {
	sku := pick(record, index, "sku")
	name := pick(record, index, "name")
	priceStr := pick(record, index, "price")
	if sku == "" && name == "" && priceStr == "" {
		return nil, nil
	}
	if sku == "" || name == "" || priceStr == "" {
		return nil, fmt.Errorf("sku, name and price are required (sku %q)", sku)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("invalid price %q for sku %q", priceStr, sku)
	}

	id := pick(record, index, "id")
	if id != "" && len(id) != 36 {
		return nil, fmt.Errorf("invalid id for sku %q: %s", sku, id)
	}

	stock := 0
	if s := pick(record, index, "stock_quantity"); s != "" {
		stock, err = strconv.Atoi(s)
		if err != nil || stock < 0 {
			return nil, fmt.Errorf("invalid stock_quantity %q for sku %q", s, sku)
		}
	}
	tracked, err := pickBool(record, index, "track_quantity", true)
	if err != nil {
		return nil, fmt.Errorf("sku %q: %w", sku, err)
	}
	active, err := pickBool(record, index, "is_active", true)
	if err != nil {
		return nil, fmt.Errorf("sku %q: %w", sku, err)
	}

	return &domain.Product{
		ID:            id,
		SKU:           sku,
		Name:          name,
		Description:   pick(record, index, "description"),
		ImageURL:      pick(record, index, "image_url"),
		Price:         price.Round(2),
		StockQuantity: stock,
		TrackQuantity: tracked,
		IsActive:      active,
	}, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func pickBool(record []string, index map[string]int, key string, def bool) (bool, error) {
	v := pick(record, index, key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}
