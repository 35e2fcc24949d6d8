package factory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/byuri-coder/pecu-backend/internal/adapter/repository/memory"
	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
)

// MockContractRepository is a mock implementation of ContractRepository for testing
type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockContractRepository) FindByNegotiationID(ctx context.Context, negotiationID string) (*domain.Contract, error) {
	args := m.Called(ctx, negotiationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockContractRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, mutate domain.ContractMutator) (*domain.Contract, error) {
	args := m.Called(ctx, id, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

// MockAssetGateway is a mock implementation of AssetGateway for testing
type MockAssetGateway struct {
	mock.Mock
}

func (m *MockAssetGateway) GetAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetGateway) MarkSold(ctx context.Context, assetID string) error {
	args := m.Called(ctx, assetID)
	return args.Error(0)
}

func fastFactory(contracts domain.ContractRepository, assets domain.AssetGateway) *Factory {
	f := NewFactory(contracts, assets, logger.NewNop())
	f.rereadWait = time.Millisecond
	return f
}

func testAsset() *domain.Asset {
	return &domain.Asset{
		ID:      "asset-1",
		Title:   "Lot 42",
		OwnerID: "seller-1",
		Price:   decimal.RequireFromString("1000.00"),
	}
}

func TestGetOrCreate_RequiresNegotiationID(t *testing.T) {
	f := fastFactory(new(MockContractRepository), new(MockAssetGateway))

	_, err := f.GetOrCreate(context.Background(), "  ", "b", "s", "a")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetOrCreate_ReturnsExistingContract(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContractRepository)
	existing := domain.NewContract("neg_1", "B", "S", "A1", time.Now())
	mockRepo.On("FindByNegotiationID", ctx, "neg_1").Return(existing, nil)

	f := fastFactory(mockRepo, new(MockAssetGateway))
	got, err := f.GetOrCreate(ctx, "neg_1", "B", "S", "A1")

	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetOrCreate_CreatesOnFirstContact(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContractRepository)
	mockAssets := new(MockAssetGateway)
	mockRepo.On("FindByNegotiationID", ctx, "neg_1").Return(nil, domain.ErrNotFound)
	mockAssets.On("GetAsset", ctx, "A1").Return(testAsset(), nil)
	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Contract")).Return(nil)

	f := fastFactory(mockRepo, mockAssets)
	got, err := f.GetOrCreate(ctx, "neg_1", "B", "S", "A1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, domain.StepOpened, got.Step)
	// Seller defaults seeded from the asset
	assert.Equal(t, "seller-1", got.Fields.Seller.LegalName)
	assert.Equal(t, 1, got.Fields.Installments)
	mockRepo.AssertExpectations(t)
}

func TestGetOrCreate_SeedingFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContractRepository)
	mockAssets := new(MockAssetGateway)
	mockRepo.On("FindByNegotiationID", ctx, "neg_1").Return(nil, domain.ErrNotFound)
	mockAssets.On("GetAsset", ctx, "A1").Return(nil, assertErr("asset service down"))
	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Contract")).Return(nil)

	f := fastFactory(mockRepo, mockAssets)
	got, err := f.GetOrCreate(ctx, "neg_1", "B", "S", "A1")

	require.NoError(t, err)
	assert.Empty(t, got.Fields.Seller.LegalName)
}

func TestGetOrCreate_LostRaceAdoptsWinner(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContractRepository)
	mockAssets := new(MockAssetGateway)
	winner := domain.NewContract("neg_1", "B", "S", "A1", time.Now())

	// Not found, create loses the race, then the winner's document is briefly
	// invisible before the re-read sees it
	mockRepo.On("FindByNegotiationID", ctx, "neg_1").Return(nil, domain.ErrNotFound).Twice()
	mockAssets.On("GetAsset", ctx, "A1").Return(testAsset(), nil)
	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Contract")).Return(domain.ErrDuplicateKey)
	mockRepo.On("FindByNegotiationID", ctx, "neg_1").Return(winner, nil)

	f := fastFactory(mockRepo, mockAssets)
	got, err := f.GetOrCreate(ctx, "neg_1", "B", "S", "A1")

	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	mockRepo.AssertExpectations(t)
}

func TestGetOrCreate_SurfacesTransientConflictWhenWinnerNeverAppears(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockContractRepository)
	mockAssets := new(MockAssetGateway)
	mockRepo.On("FindByNegotiationID", ctx, "neg_1").Return(nil, domain.ErrNotFound)
	mockAssets.On("GetAsset", ctx, "A1").Return(testAsset(), nil)
	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Contract")).Return(domain.ErrDuplicateKey)

	f := fastFactory(mockRepo, mockAssets)
	_, err := f.GetOrCreate(ctx, "neg_1", "B", "S", "A1")

	assert.ErrorIs(t, err, domain.ErrTransientConflict)
}

func TestGetOrCreate_ConcurrentCallersGetSameContract(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewContractRepository()
	mockAssets := new(MockAssetGateway)
	mockAssets.On("GetAsset", mock.Anything, "A1").Return(testAsset(), nil)

	f := fastFactory(repo, mockAssets)

	const callers = 16
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			contract, err := f.GetOrCreate(ctx, "neg_1", "B", "S", "A1")
			if !assert.NoError(t, err) {
				return
			}
			ids[i] = contract.ID
		}(i)
	}
	wg.Wait()

	// Exactly one document exists and every caller saw it
	stored, err := repo.FindByNegotiationID(ctx, "neg_1")
	require.NoError(t, err)
	for i := 0; i < callers; i++ {
		assert.Equal(t, stored.ID, ids[i])
	}
}

// assertErr builds a plain error without pulling in another import
type assertErr string

func (e assertErr) Error() string { return string(e) }
