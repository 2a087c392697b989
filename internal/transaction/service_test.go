package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

func amounts(dinheiro, pix, debito, credito string) calculation.Amounts {
	return calculation.ParseAmounts(dinheiro, pix, debito, credito)
}

func assertDecimal(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "expected %s, got %s", want, got)
}

func TestService_Add(t *testing.T) {
	type args struct {
		params transaction.CreateParams
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{
				params: transaction.CreateParams{
					Date:    "2024-01-15",
					Amounts: amounts("100", "200", "300", "400"),
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.NotEqual(t, uuid.Nil, tx.ID)
						assert.Equal(t, "2024-01", tx.Month)
						assert.Equal(t, 2024, tx.Year)
						assertDecimal(t, decimal.RequireFromString("981.13"), tx.TotalLiquido)
						assertDecimal(t, decimal.RequireFromString("39.2452"), tx.KamShare)

						return nil
					})
			},
		},
		{
			name: "ZeroSum",
			args: args{
				params: transaction.CreateParams{
					Date:    "2024-01-01",
					Amounts: amounts("0", "0", "0", "0"),
				},
			},
			wantErr: transaction.ErrValidation,
		},
		{
			name: "MissingDate",
			args: args{
				params: transaction.CreateParams{
					Amounts: amounts("10", "", "", ""),
				},
			},
			wantErr: transaction.ErrValidation,
		},
		{
			name: "UnparsableDate",
			args: args{
				params: transaction.CreateParams{
					Date:    "15/01/2024",
					Amounts: amounts("10", "", "", ""),
				},
			},
			wantErr: transaction.ErrValidation,
		},
		{
			name: "RepoError",
			args: args{
				params: transaction.CreateParams{
					Date:    "2024-01-15",
					Amounts: amounts("", "50", "", ""),
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo, calculation.DefaultRates())
			got, err := svc.Add(context.Background(), tt.args.params)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, transaction.ErrValidation) {
					assert.ErrorIs(t, err, transaction.ErrValidation)
				} else {
					var backendErr *transaction.BackendError
					assert.ErrorAs(t, err, &backendErr)
				}

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, got)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_Preview_MatchesPersisted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	svc := transaction.NewService(repo, calculation.DefaultRates())
	params := transaction.CreateParams{Date: "2024-05-02", Amounts: amounts("33,33", "12", "87.5", "240")}

	preview := svc.Preview(params.Amounts, params.Split)

	tx, err := svc.Add(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, preview, tx.Result)
}

func TestBuild_AmountsKeptAtCentavos(t *testing.T) {
	params := transaction.CreateParams{
		Date: "2024-05-02",
		Amounts: calculation.Amounts{
			Dinheiro: decimal.RequireFromString("10.555"),
			Pix:      decimal.RequireFromString("0.101"),
		},
	}

	tx, err := transaction.Build(params, calculation.DefaultRates(), time.Now())
	require.NoError(t, err)

	assertDecimal(t, decimal.RequireFromString("10.56"), tx.Dinheiro)
	assertDecimal(t, decimal.RequireFromString("0.1"), tx.Pix)
	assertDecimal(t, tx.Amounts.Total(), tx.TotalBruto)

	again, err := transaction.Build(params, calculation.DefaultRates(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, transaction.DuplicateKey(tx), transaction.DuplicateKey(again))
	assert.Equal(t, "2024-05-02|10.56|0.1|0|0", transaction.DuplicateKey(tx))
}

func TestService_Update_RecomputesDerivedFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	created := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	existing, err := transaction.Build(transaction.CreateParams{
		Date:    "2024-03-10",
		Amounts: amounts("100", "200", "300", "400"),
	}, calculation.DefaultRates(), created)
	require.NoError(t, err)

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().GetTransaction(gomock.Any(), existing.ID).Return(existing, nil)

	var saved *transaction.Transaction

	repo.EXPECT().
		UpdateTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
			saved = tx
			return nil
		})

	svc := transaction.NewService(repo, calculation.DefaultRates())
	credito := decimal.NewFromInt(1000)

	got, err := svc.Update(context.Background(), existing.ID, transaction.Patch{Credito: &credito})
	require.NoError(t, err)
	require.NotNil(t, saved)

	want := calculation.Calculate(amounts("100", "200", "300", "1000"), calculation.DefaultRates())

	assertDecimal(t, want.TaxaCredito, got.TaxaCredito)
	assertDecimal(t, want.TotalLiquido, got.TotalLiquido)
	assertDecimal(t, want.EduShare, got.EduShare)
	assertDecimal(t, want.KamShare, got.KamShare)
	assertDecimal(t, decimal.RequireFromString("35.1"), got.TaxaCredito)
	assertDecimal(t, decimal.NewFromInt(1000), saved.Credito)
	assertDecimal(t, want.TotalBruto, saved.TotalBruto)
	assert.Equal(t, existing.ID, saved.ID)
	assert.True(t, saved.UpdatedAt.After(created))

	// The stored record handed in must not be modified in place.
	assertDecimal(t, decimal.NewFromInt(400), existing.Credito)
}

func TestService_Update_UsesStoredRates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	booked := calculation.DefaultRates()
	booked.Studio = decimal.NewFromInt(50)

	existing, err := transaction.Build(transaction.CreateParams{
		Date:    "2024-03-10",
		Amounts: amounts("100", "", "", ""),
	}, booked, time.Now())
	require.NoError(t, err)

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().GetTransaction(gomock.Any(), existing.ID).Return(existing, nil)
	repo.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	svc := transaction.NewService(repo, calculation.DefaultRates())
	pix := decimal.NewFromInt(100)

	got, err := svc.Update(context.Background(), existing.ID, transaction.Patch{Pix: &pix})
	require.NoError(t, err)
	assertDecimal(t, decimal.NewFromInt(100), got.StudioShare)
}

func TestService_Update_Errors(t *testing.T) {
	type testCase struct {
		name      string
		patch     transaction.Patch
		setupMock func(m *transaction.MockRepository, existing *transaction.Transaction)
		wantErr   error
	}

	zero := decimal.Zero
	badDate := "2024-13-01"

	tests := []testCase{
		{
			name: "NotFound",
			setupMock: func(m *transaction.MockRepository, existing *transaction.Transaction) {
				m.EXPECT().GetTransaction(gomock.Any(), existing.ID).Return(nil, transaction.ErrNotFound)
			},
			wantErr: transaction.ErrNotFound,
		},
		{
			name:  "ZeroAfterMerge",
			patch: transaction.Patch{Dinheiro: &zero},
			setupMock: func(m *transaction.MockRepository, existing *transaction.Transaction) {
				m.EXPECT().GetTransaction(gomock.Any(), existing.ID).Return(existing, nil)
			},
			wantErr: transaction.ErrValidation,
		},
		{
			name:  "BadDate",
			patch: transaction.Patch{Date: &badDate},
			setupMock: func(m *transaction.MockRepository, existing *transaction.Transaction) {
				m.EXPECT().GetTransaction(gomock.Any(), existing.ID).Return(existing, nil)
			},
			wantErr: transaction.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			existing, err := transaction.Build(transaction.CreateParams{
				Date:    "2024-03-10",
				Amounts: amounts("80", "", "", ""),
			}, calculation.DefaultRates(), time.Now())
			require.NoError(t, err)

			repo := transaction.NewMockRepository(ctrl)
			tt.setupMock(repo, existing)

			svc := transaction.NewService(repo, calculation.DefaultRates())
			got, err := svc.Update(context.Background(), existing.ID, tt.patch)

			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Remove_MissingIDAlwaysNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().
		DeleteTransaction(gomock.Any(), gomock.Any()).
		Return(transaction.ErrNotFound).
		Times(3)

	svc := transaction.NewService(repo, calculation.DefaultRates())

	for range 3 {
		err := svc.Remove(context.Background(), uuid.New())
		assert.ErrorIs(t, err, transaction.ErrNotFound)
	}
}

func TestService_Remove_BackendError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().DeleteTransaction(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	svc := transaction.NewService(repo, calculation.DefaultRates())
	err := svc.Remove(context.Background(), uuid.New())

	var backendErr *transaction.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "deleting transaction", backendErr.Op)
	assert.NotErrorIs(t, err, transaction.ErrNotFound)
}

func TestService_List(t *testing.T) {
	type args struct {
		filter transaction.ListFilter
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantLen   int
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{filter: transaction.ListFilter{}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), transaction.ListFilter{}).
					Return([]*transaction.Transaction{
						{ID: uuid.New()},
						{ID: uuid.New()},
					}, nil)
			},
			wantLen: 2,
			wantErr: false,
		},
		{
			name: "Error",
			args: args{filter: transaction.ListFilter{}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), transaction.ListFilter{}).
					Return(nil, errors.New("list error"))
			},
			wantLen: 0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo, calculation.DefaultRates())
			got, err := svc.List(context.Background(), tt.args.filter)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_ImportBatch_NoConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo, calculation.DefaultRates())

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{Date: "2024-01-15", Amounts: amounts("50", "", "", "")},
	}

	repo.EXPECT().BeginImport(gomock.Any(), date, date).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), gomock.Len(1)).Return(nil, nil)
	itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Len(1)).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 1)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
	assertDecimal(t, decimal.NewFromInt(50), result.Imported[0].TotalBruto)
}

func TestService_ImportBatch_WithConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo, calculation.DefaultRates())

	params := []transaction.CreateParams{
		{Date: "2024-01-15", Amounts: amounts("50", "", "", "")},
		{Date: "2024-01-20", Amounts: amounts("", "", "", "120")},
	}

	existing, err := transaction.Build(params[0], calculation.DefaultRates(), time.Now())
	require.NoError(t, err)

	repo.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), gomock.Len(2)).Return([]*transaction.Transaction{existing}, nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	require.Len(t, result.New, 1)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, existing, result.Conflicts[0].Existing)
	assert.Equal(t, "2024-01-15", result.Conflicts[0].Incoming.Date.Format(time.DateOnly))
	assert.Equal(t, "2024-01", result.New[0].Month)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo, calculation.DefaultRates())

	result, err := svc.ImportBatch(context.Background(), []transaction.CreateParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
}

func TestService_ImportBatch_InvalidRowWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo, calculation.DefaultRates())

	_, err := svc.ImportBatch(context.Background(), []transaction.CreateParams{
		{Date: "2024-01-15", Amounts: amounts("50", "", "", "")},
		{Date: "2024-01-16"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, transaction.ErrValidation)
	assert.Contains(t, err.Error(), "row 2")
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo, calculation.DefaultRates())

	first := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().BeginImport(gomock.Any(), first, last).Return(itx, nil)
	itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Len(3)).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	txs, err := svc.CreateBatch(context.Background(), []transaction.CreateParams{
		{Date: "2024-02-10", Amounts: amounts("10", "", "", "")},
		{Date: "2024-02-28", Amounts: amounts("", "20", "", "")},
		{Date: "2024-02-01", Amounts: amounts("", "", "30", "")},
	})
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}
