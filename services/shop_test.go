package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miraclezmoon/TELEBOT-19/models"
)

func createProduct(t *testing.T, core *Core, name, category string, price int64, stock int) models.Product {
	t.Helper()
	p, err := core.Shop.CreateProduct(context.Background(), ProductInput{
		Name:     name,
		Category: category,
		Price:    price,
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func TestPurchase(t *testing.T) {
	core, db, _ := setupCore(t)
	ctx := context.Background()
	registerWithBalance(t, core, "u1", 100)
	p := createProduct(t, core, "Sticker", "merch", 30, 2)

	res, err := core.Shop.Purchase(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 70, res.Balance)
	require.NotEmpty(t, res.Purchase.OrderNo)
	require.EqualValues(t, 30, res.Purchase.CoinsSpent)
	require.Equal(t, "Sticker", res.Purchase.ProductName)

	var stored models.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	require.Equal(t, 1, stored.Stock)

	purchases, err := core.Shop.Purchases(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	requireLedgerConsistent(t, db, "u1")
}

func TestPurchaseFailuresLeaveNoTrace(t *testing.T) {
	core, db, _ := setupCore(t)
	ctx := context.Background()
	registerWithBalance(t, core, "poor", 10)
	pricey := createProduct(t, core, "Hoodie", "merch", 50, 5)
	soldOut := createProduct(t, core, "Cap", "merch", 5, 0)
	retired := createProduct(t, core, "Mug", "merch", 5, 5)
	require.NoError(t, core.Shop.DeleteProduct(ctx, retired.ID))

	_, err := core.Shop.Purchase(ctx, "poor", pricey.ID)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = core.Shop.Purchase(ctx, "poor", soldOut.ID)
	require.ErrorIs(t, err, ErrOutOfStock)
	_, err = core.Shop.Purchase(ctx, "poor", retired.ID)
	require.ErrorIs(t, err, ErrProductNotFound)
	_, err = core.Shop.Purchase(ctx, "poor", 999)
	require.ErrorIs(t, err, ErrProductNotFound)
	_, err = core.Shop.Purchase(ctx, "ghost", pricey.ID)
	require.ErrorIs(t, err, ErrAccountNotFound)

	require.EqualValues(t, 10, loadAccount(t, db, "poor").Balance)
	var stored models.Product
	require.NoError(t, db.First(&stored, pricey.ID).Error)
	require.Equal(t, 5, stored.Stock)
	var n int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&n).Error)
	require.Zero(t, n)
	requireLedgerConsistent(t, db, "poor")
}

func TestConcurrentPurchaseOfLastUnit(t *testing.T) {
	core, db, _ := setupCore(t)
	ctx := context.Background()
	p := createProduct(t, core, "Limited pin", "merch", 10, 1)

	const buyers = 8
	for i := 0; i < buyers; i++ {
		registerWithBalance(t, core, fmt.Sprintf("u%d", i), 10)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		outOfStock int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := core.Shop.Purchase(ctx, id, p.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case KindOf(err) == KindOutOfStock:
				outOfStock++
			default:
				t.Errorf("unexpected error for %s: %v", id, err)
			}
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, buyers-1, outOfStock)

	var stored models.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	require.Zero(t, stored.Stock)

	var spent int64
	for i := 0; i < buyers; i++ {
		id := fmt.Sprintf("u%d", i)
		requireLedgerConsistent(t, db, id)
		spent += 10 - loadAccount(t, db, id).Balance
	}
	require.EqualValues(t, 10, spent)
}

func TestListAvailableOrdering(t *testing.T) {
	core, _, _ := setupCore(t)
	ctx := context.Background()
	b2 := createProduct(t, core, "Poster", "b-prints", 20, 1)
	a5 := createProduct(t, core, "Pin", "a-merch", 50, 1)
	a1 := createProduct(t, core, "Sticker", "a-merch", 10, 3)
	createProduct(t, core, "Sold out", "a-merch", 1, 0)
	hidden := createProduct(t, core, "Retired", "a-merch", 2, 4)
	require.NoError(t, core.Shop.DeleteProduct(ctx, hidden.ID))

	list, err := core.Shop.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []uint{a1.ID, a5.ID, b2.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})

	all, err := core.Shop.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestProductAdmin(t *testing.T) {
	core, _, _ := setupCore(t)
	ctx := context.Background()

	invalid := []ProductInput{
		{Name: "", Category: "c", Price: 1},
		{Name: "n", Category: " ", Price: 1},
		{Name: "n", Category: "c", Price: 0},
		{Name: "n", Category: "c", Price: 1, Stock: -1},
	}
	for _, in := range invalid {
		_, err := core.Shop.CreateProduct(ctx, in)
		require.Equal(t, KindInvalidInput, KindOf(err), "%+v", in)
	}

	p := createProduct(t, core, "Pin", "merch", 5, 1)
	updated, err := core.Shop.UpdateProduct(ctx, p.ID, ProductInput{Name: "Gold pin", Category: "merch", Price: 8, Stock: 4, Description: "<i>shiny</i>"})
	require.NoError(t, err)
	require.Equal(t, "Gold pin", updated.Name)
	require.EqualValues(t, 8, updated.Price)
	require.Equal(t, 4, updated.Stock)
	require.Equal(t, "shiny", updated.Description)
	require.True(t, updated.Active)

	_, err = core.Shop.UpdateProduct(ctx, 999, ProductInput{Name: "x", Category: "c", Price: 1})
	require.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, core.Shop.DeleteProduct(ctx, p.ID))
	require.NoError(t, core.Shop.DeleteProduct(ctx, p.ID))
	require.ErrorIs(t, core.Shop.DeleteProduct(ctx, 999), ErrProductNotFound)

	active := true
	revived, err := core.Shop.UpdateProduct(ctx, p.ID, ProductInput{Name: "Gold pin", Category: "merch", Price: 8, Stock: 4, Active: &active})
	require.NoError(t, err)
	require.True(t, revived.Active)
}
