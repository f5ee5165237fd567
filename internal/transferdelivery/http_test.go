package transferdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

type eqTransferParamsMatcher struct {
	arg domain.CreateTransferParams
}

func (e eqTransferParamsMatcher) Matches(x interface{}) bool {
	arg, ok := x.(domain.CreateTransferParams)
	if !ok {
		return false
	}

	return arg.SrcAccountID == e.arg.SrcAccountID &&
		arg.DstAccountID == e.arg.DstAccountID &&
		arg.Amount.Equal(e.arg.Amount)
}

func (e eqTransferParamsMatcher) String() string {
	return fmt.Sprintf("matches %+v", e.arg)
}

// EqTransferParams matches transfer params comparing amounts numerically.
func EqTransferParams(arg domain.CreateTransferParams) gomock.Matcher {
	return eqTransferParamsMatcher{arg}
}

func TestCreateTransferAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)

	username := randompkg.Owner()
	srcID := domain.AccountIDFromUsername(username)
	dstID := domain.AccountIDFromUsername(randompkg.Owner())
	amount := decimal.RequireFromString("100.25")

	arg := domain.CreateTransferParams{
		SrcAccountID: srcID,
		DstAccountID: dstID,
		Amount:       amount,
	}

	transfer := domain.Transfer{
		ID:           uuid.NewString(),
		SrcAccountID: srcID,
		DstAccountID: dstID,
		Amount:       amount,
		OccurredAt:   time.Now().UTC().Truncate(time.Second),
	}

	testCases := []struct {
		name           string
		requestBody    gin.H
		buildStubs     func(transferService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "OK",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       "100.25",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), EqTransferParams(arg)).
					Times(1).
					Return(transfer, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "NumericAmount",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       100.25,
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), EqTransferParams(arg)).
					Times(1).
					Return(transfer, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "InvalidSrcAccountID",
			requestBody: gin.H{
				"srcAccountId": "1",
				"dstAccountId": dstID,
				"amount":       "100",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "SrcAccountID field must be a valid uuid",
		},
		{
			name: "IdenticalAccounts",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": srcID,
				"amount":       "100",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "DstAccountID field must differ from SrcAccountID",
		},
		{
			name: "MissingAmount",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount field is required",
		},
		{
			name: "NonNumericAmount",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       "ten",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "NonPositiveAmount",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       "0",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transfer{}, domain.ErrInvalidAmount)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInvalidAmount.Error(),
		},
		{
			name: "AccountNotFound",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       "100.25",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), EqTransferParams(arg)).
					Times(1).
					Return(domain.Transfer{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name: "InsufficientBalance",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       "100.25",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), EqTransferParams(arg)).
					Times(1).
					Return(domain.Transfer{}, domain.ErrInsufficientBalance)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      domain.ErrInsufficientBalance.Error(),
		},
		{
			name: "ConcurrentModification",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       "100.25",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), EqTransferParams(arg)).
					Times(1).
					Return(domain.Transfer{}, domain.ErrConcurrentModification)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      domain.ErrConcurrentModification.Error(),
		},
		{
			name: "StoreUnavailable",
			requestBody: gin.H{
				"srcAccountId": srcID,
				"dstAccountId": dstID,
				"amount":       "100.25",
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), EqTransferParams(arg)).
					Times(1).
					Return(domain.Transfer{}, domain.ErrStoreUnavailable)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			transferService := NewMockService(ctrl)
			tc.buildStubs(transferService)

			server := gin.New()
			server.POST("/transfer", NewHandler(transferService).Create)

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, "/transfer", bytes.NewReader(body))
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			require.Equal(t, tc.wantStatusCode, recorder.Code)

			res := web.Response{Data: &data{}}
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

			if tc.wantStatusCode != http.StatusOK {
				require.NotEmpty(t, res.Error)

				if tc.wantError != "" {
					require.Equal(t, tc.wantError, res.Error)
				}

				return
			}

			got := res.Data.(*data).Transfer
			require.Equal(t, transfer.ID, got.ID)
			require.Equal(t, srcID, got.SrcAccountID)
			require.Equal(t, dstID, got.DstAccountID)
			require.True(t, amount.Equal(got.Amount))
			require.WithinDuration(t, transfer.OccurredAt, got.OccurredAt, time.Second)
		})
	}
}

func TestCreateTransferOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	owner := randompkg.Owner()
	srcID := domain.AccountIDFromUsername(owner)
	dstID := domain.AccountIDFromUsername(randompkg.Owner())

	testCases := []struct {
		name           string
		username       string
		buildStubs     func(transferService *MockService)
		wantStatusCode int
	}{
		{
			name:     "Owner",
			username: owner,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(1).
					Return(domain.Transfer{ID: uuid.NewString()}, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:     "NotOwner",
			username: randompkg.Owner(),
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusForbidden,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			transferService := NewMockService(ctrl)
			tc.buildStubs(transferService)

			server := gin.New()
			server.Use(middleware.AuthMiddleware(tokenMaker))
			server.POST("/transfer", NewHandler(transferService).Create)

			body, err := json.Marshal(gin.H{"srcAccountId": srcID, "dstAccountId": dstID, "amount": "1"})
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, "/transfer", bytes.NewReader(body))
			require.NoError(t, err)
			require.NoError(t, middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, tc.username, time.Minute))

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			require.Equal(t, tc.wantStatusCode, recorder.Code)
		})
	}
}

func TestListTransfersAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)

	accountID := domain.AccountIDFromUsername(randompkg.Owner())
	transfers := []domain.Transfer{
		{
			ID:           uuid.NewString(),
			SrcAccountID: accountID,
			DstAccountID: domain.AccountIDFromUsername(randompkg.Owner()),
			Amount:       decimal.NewFromInt(3),
			OccurredAt:   time.Now().UTC().Truncate(time.Second),
		},
	}

	testCases := []struct {
		name           string
		accountID      string
		buildStubs     func(transferService *MockService)
		wantStatusCode int
		wantLen        int
	}{
		{
			name:      "OK",
			accountID: accountID,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().ListInvolving(gomock.Any(), gomock.Eq(accountID)).Times(1).Return(transfers, nil)
			},
			wantStatusCode: http.StatusOK,
			wantLen:        1,
		},
		{
			name:      "Empty",
			accountID: accountID,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().ListInvolving(gomock.Any(), gomock.Eq(accountID)).Times(1).
					Return([]domain.Transfer{}, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:      "InvalidID",
			accountID: "abc",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().ListInvolving(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:      "InternalError",
			accountID: accountID,
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().ListInvolving(gomock.Any(), gomock.Eq(accountID)).Times(1).
					Return(nil, domain.ErrStoreUnavailable)
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			transferService := NewMockService(ctrl)
			tc.buildStubs(transferService)

			server := gin.New()
			server.GET("/accounts/:id/transfers", NewHandler(transferService).List)

			req, err := http.NewRequest(http.MethodGet, "/accounts/"+tc.accountID+"/transfers", nil)
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			require.Equal(t, tc.wantStatusCode, recorder.Code)

			if tc.wantStatusCode != http.StatusOK {
				return
			}

			var res struct {
				Data struct {
					Transfers []domain.Transfer `json:"transfers"`
				} `json:"data"`
			}
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
			require.NotNil(t, res.Data.Transfers)
			require.Len(t, res.Data.Transfers, tc.wantLen)
		})
	}
}
