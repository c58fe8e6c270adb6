package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database"
	"gastro-system/internal/database/models"
	stockhandler "gastro-system/internal/services/stock/handler"
)

type fixture struct {
	db       *gorm.DB
	purchase *PurchaseHandler
	supplier *models.Supplier
	loc      *models.Location
	flour    *models.Ingredient
	oil      *models.Ingredient
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	f := &fixture{db: db, purchase: NewPurchaseHandler(db, stockhandler.NewStockHandler(db, nil))}

	f.supplier = &models.Supplier{SupplierCode: "MILL", SupplierName: "City Mill", IsActive: true}
	require.NoError(t, db.Create(f.supplier).Error)
	f.loc = &models.Location{LocationCode: "MAIN", LocationName: "Main Kitchen", IsActive: true}
	require.NoError(t, db.Create(f.loc).Error)

	f.flour = &models.Ingredient{Name: "Flour", UnitOfMeasure: "g", CostPerUnit: decimal.Zero, IsActive: true}
	require.NoError(t, db.Create(f.flour).Error)
	f.oil = &models.Ingredient{Name: "Olive Oil", UnitOfMeasure: "ml", CostPerUnit: decimal.Zero, IsActive: true}
	require.NoError(t, db.Create(f.oil).Error)
	return f
}

func (f *fixture) newOrder(t *testing.T) *models.PurchaseOrder {
	t.Helper()
	order, err := f.purchase.CreateOrder(context.Background(), CreateOrderRequest{
		SupplierID: f.supplier.ID,
		LocationID: f.loc.ID,
		Items: []OrderItemRequest{
			{IngredientID: f.flour.ID, OrderedQuantity: mustDecimal(t, "10000"), UnitCost: mustDecimal(t, "0.002")},
			{IngredientID: f.oil.ID, OrderedQuantity: mustDecimal(t, "2000"), UnitCost: mustDecimal(t, "0.01")},
		},
	}, 1)
	require.NoError(t, err)
	return order
}

func (f *fixture) approvedOrder(t *testing.T) *models.PurchaseOrder {
	t.Helper()
	order := f.newOrder(t)
	_, err := f.purchase.Submit(context.Background(), order.ID)
	require.NoError(t, err)
	approved, err := f.purchase.Approve(context.Background(), order.ID, 2)
	require.NoError(t, err)
	return approved
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.purchase.CreateOrder(context.Background(), CreateOrderRequest{
		SupplierID: f.supplier.ID,
		LocationID: f.loc.ID,
	}, 1)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	_, err = f.purchase.CreateOrder(context.Background(), CreateOrderRequest{
		SupplierID: f.supplier.ID,
		LocationID: f.loc.ID,
		Items:      []OrderItemRequest{{IngredientID: 999, OrderedQuantity: mustDecimal(t, "1")}},
	}, 1)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	order := f.newOrder(t)
	assert.Equal(t, models.OrderDraft, order.Status)
	assert.NotEmpty(t, order.OrderNumber)
	require.Len(t, order.Items, 2)

	submitted, err := f.purchase.Submit(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderSubmitted, submitted.Status)

	approved, err := f.purchase.Approve(context.Background(), order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OrderApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, int64(2), *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	// Submitting again is an invalid transition.
	_, err = f.purchase.Submit(context.Background(), order.ID)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestReceiveCreatesHoldingsAndFlipsStatus(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)

	flourItem, oilItem := order.Items[0], order.Items[1]

	partial, err := f.purchase.ReceiveItems(context.Background(), order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{ItemID: flourItem.ID, Quantity: mustDecimal(t, "10000")}},
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPartiallyReceived, partial.Status)

	var holdings []models.StockHolding
	require.NoError(t, f.db.Where("location_id = ?", f.loc.ID).Find(&holdings).Error)
	require.Len(t, holdings, 1)
	assert.Equal(t, f.flour.ID, holdings[0].IngredientID)
	assert.True(t, holdings[0].Quantity.Equal(mustDecimal(t, "10000")))
	require.NotNil(t, holdings[0].UnitCost)
	assert.True(t, holdings[0].UnitCost.Equal(mustDecimal(t, "0.002")))
	assert.NotNil(t, holdings[0].PurchaseDate)

	full, err := f.purchase.ReceiveItems(context.Background(), order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{ItemID: oilItem.ID, Quantity: mustDecimal(t, "2000")}},
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReceived, full.Status)

	var movements []models.StockMovement
	require.NoError(t, f.db.Where("reference_type = ?", models.ReferencePurchaseOrder).Find(&movements).Error)
	assert.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, models.MovementReceipt, m.MovementType)
		require.NotNil(t, m.ReferenceID)
		assert.Equal(t, order.ID, *m.ReferenceID)
	}
}

func TestReceiveRejectsOverReceipt(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)

	_, err := f.purchase.ReceiveItems(context.Background(), order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{ItemID: order.Items[0].ID, Quantity: mustDecimal(t, "10001")}},
	}, 3)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	var count int64
	f.db.Model(&models.StockHolding{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestReceiveAcrossTwoDeliveriesCannotExceedOrdered(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)
	flourItem := order.Items[0]

	partial, err := f.purchase.ReceiveItems(context.Background(), order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{ItemID: flourItem.ID, Quantity: mustDecimal(t, "6000")}},
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPartiallyReceived, partial.Status)

	// 6000 already booked against 10000 ordered; another 5000 would
	// overshoot and must be refused by the update itself.
	_, err = f.purchase.ReceiveItems(context.Background(), order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{ItemID: flourItem.ID, Quantity: mustDecimal(t, "5000")}},
	}, 3)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	var item models.PurchaseOrderItem
	require.NoError(t, f.db.First(&item, flourItem.ID).Error)
	assert.True(t, item.ReceivedQuantity.Equal(mustDecimal(t, "6000")))

	var holdings int64
	f.db.Model(&models.StockHolding{}).Count(&holdings)
	assert.Equal(t, int64(1), holdings)
}

func TestReceiveRequiresApprovedOrder(t *testing.T) {
	f := newFixture(t)
	order := f.newOrder(t)

	_, err := f.purchase.ReceiveItems(context.Background(), order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{ItemID: order.Items[0].ID, Quantity: mustDecimal(t, "100")}},
	}, 3)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestCancelledOrderRefusesEverything(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)

	cancelled, err := f.purchase.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	_, err = f.purchase.ReceiveItems(context.Background(), order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{ItemID: order.Items[0].ID, Quantity: mustDecimal(t, "100")}},
	}, 3)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	_, err = f.purchase.Cancel(context.Background(), order.ID)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.newOrder(t)
	f.approvedOrder(t)

	draft := models.OrderDraft
	orders, total, err := f.purchase.ListOrders(context.Background(), &draft, nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderDraft, orders[0].Status)
}
