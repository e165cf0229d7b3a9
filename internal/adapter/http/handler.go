package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/certiq/internal/app"
	"github.com/neomorfeo/certiq/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ProtocolResponse is the API representation of the protocol record.
type ProtocolResponse struct {
	Address            string `json:"address" doc:"Derived protocol address; holds the treasury"`
	Admin              string `json:"admin" doc:"Administrator address"`
	FeeAmount          uint64 `json:"fee_amount" doc:"Subscription fee in token base units"`
	FeeDecimals        uint8  `json:"fee_decimals" doc:"Decimals of the fee token"`
	SubscriptionPeriod int64  `json:"subscription_period" doc:"Subscription length in seconds"`
	TenantCount        uint16 `json:"tenant_count" doc:"Number of colleges ever registered"`
	TreasuryBalance    uint64 `json:"treasury_balance" doc:"Escrowed fees not yet withdrawn"`
	CreatedAt          string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt          string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toProtocolResponse(p domain.Protocol) ProtocolResponse {
	return ProtocolResponse{
		Address:            string(p.Address),
		Admin:              string(p.Admin),
		FeeAmount:          p.FeeAmount,
		FeeDecimals:        p.FeeDecimals,
		SubscriptionPeriod: p.SubscriptionPeriod,
		TenantCount:        p.TenantCount,
		TreasuryBalance:    p.TreasuryBalance,
		CreatedAt:          p.CreatedAt.Format(timeFormat),
		UpdatedAt:          p.UpdatedAt.Format(timeFormat),
	}
}

// CollectionResponse is the API representation of a college's collection.
type CollectionResponse struct {
	Address string `json:"address" doc:"Collection address"`
	Name    string `json:"name"`
	URI     string `json:"uri"`
}

// CollegeResponse is the API representation of a registered college.
type CollegeResponse struct {
	ID              uint16               `json:"id" doc:"Sequential college id"`
	Address         string               `json:"address" doc:"Derived college address"`
	Authority       string               `json:"authority" doc:"Address allowed to add collections and mint"`
	UpdateAuthority string               `json:"update_authority"`
	Status          string               `json:"status" doc:"Subscription state evaluated at request time"`
	LastPaymentAt   string               `json:"last_payment_at" doc:"Time of the last fee payment (ISO 8601)"`
	ExpiresAt       string               `json:"expires_at" doc:"Instant after which the subscription lapses (ISO 8601)"`
	Collections     []CollectionResponse `json:"collections"`
	CreatedAt       string               `json:"created_at"`
}

func toCollegeResponse(t domain.Tenant, period time.Duration) CollegeResponse {
	refs := t.Collections.All()
	collections := make([]CollectionResponse, len(refs))
	for i, ref := range refs {
		collections[i] = CollectionResponse{Address: string(ref.Address), Name: ref.Name, URI: ref.URI}
	}
	return CollegeResponse{
		ID:              uint16(t.ID),
		Address:         string(t.Address),
		Authority:       string(t.Authority),
		UpdateAuthority: string(t.UpdateAuthority),
		Status:          string(t.Status),
		LastPaymentAt:   t.LastPaymentAt.Format(timeFormat),
		ExpiresAt:       t.ExpiresAt(period).Format(timeFormat),
		Collections:     collections,
		CreatedAt:       t.CreatedAt.Format(timeFormat),
	}
}

// CertificateResponse is the API representation of an issued certificate.
type CertificateResponse struct {
	Address         string             `json:"address" doc:"Certificate asset address"`
	Owner           string             `json:"owner" doc:"Student holding the certificate"`
	Collection      string             `json:"collection"`
	UpdateAuthority string             `json:"update_authority"`
	Name            string             `json:"name"`
	URI             string             `json:"uri"`
	Attributes      []domain.Attribute `json:"attributes"`
	Frozen          bool               `json:"frozen" doc:"Always true: certificates cannot be transferred or changed"`
	CreatedAt       string             `json:"created_at"`
}

func toCertificateResponse(a domain.Asset) CertificateResponse {
	return CertificateResponse{
		Address:         string(a.Address),
		Owner:           string(a.Owner),
		Collection:      string(a.Collection),
		UpdateAuthority: string(a.UpdateAuthority),
		Name:            a.Name,
		URI:             a.URI,
		Attributes:      a.Attributes,
		Frozen:          a.Immutable,
		CreatedAt:       a.CreatedAt.Format(timeFormat),
	}
}

// AccountResponse reports a fee token balance.
type AccountResponse struct {
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance" doc:"Balance in token base units"`
}

// --- Protocol ---

type InitializeInput struct {
	Body struct {
		FeeAmount          uint64 `json:"fee_amount" doc:"Subscription fee in token base units"`
		FeeDecimals        uint8  `json:"fee_decimals" doc:"Decimals of the fee token"`
		SubscriptionPeriod int64  `json:"subscription_period" minimum:"1" maximum:"9223372036" doc:"Subscription length in seconds"`
	}
}

type ProtocolOutput struct {
	Body ProtocolResponse
}

type UpdateParametersInput struct {
	Body struct {
		FeeAmount          *uint64 `json:"fee_amount,omitempty" doc:"New fee; omitted keeps the current value"`
		SubscriptionPeriod *int64  `json:"subscription_period,omitempty" minimum:"1" maximum:"9223372036" doc:"New period in seconds; omitted keeps the current value"`
	}
}

type WithdrawInput struct {
	Body struct {
		Amount uint64 `json:"amount" minimum:"1" doc:"Amount to move from the treasury to the admin"`
	}
}

// --- Colleges ---

type RegisterCollegeInput struct {
	Body struct {
		Authority       string `json:"authority,omitempty" doc:"College authority; defaults to the caller"`
		UpdateAuthority string `json:"update_authority,omitempty" doc:"Defaults to the authority"`
	}
}

type CollegeOutput struct {
	Body CollegeResponse
}

type CollegeIDInput struct {
	ID uint16 `path:"id" doc:"College id"`
}

type ListCollegesInput struct {
	Authority string `query:"authority" required:"false" doc:"Filter by authority address"`
	Limit     int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"100" doc:"Max results"`
	Offset    int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListCollegesOutput struct {
	Body []CollegeResponse
}

type AddCollectionInput struct {
	ID   uint16 `path:"id" doc:"College id"`
	Body struct {
		Name string `json:"name" doc:"Collection name, at most 50 characters"`
		URI  string `json:"uri" doc:"Metadata URI, at most 200 characters"`
	}
}

type CollectionOutput struct {
	Body CollectionResponse
}

type MintCertificateInput struct {
	ID   uint16 `path:"id" doc:"College id"`
	Body struct {
		Collection     string  `json:"collection" doc:"Address of one of the college's collections"`
		Recipient      string  `json:"recipient" doc:"Student address that will own the certificate"`
		Name           string  `json:"name"`
		URI            string  `json:"uri"`
		StudentName    string  `json:"student_name"`
		CourseName     string  `json:"course_name"`
		CompletionDate string  `json:"completion_date"`
		Grade          *string `json:"grade,omitempty"`
	}
}

type CertificateIDInput struct {
	Address string `path:"address" doc:"Certificate asset address"`
}

type CertificateOutput struct {
	Body CertificateResponse
}

// --- Accounts ---

type AccountInput struct {
	Owner string `path:"owner" doc:"Account owner address"`
}

type AccountOutput struct {
	Body AccountResponse
}

type DepositInput struct {
	Owner string `path:"owner" doc:"Account owner address"`
	Body  struct {
		Amount uint64 `json:"amount" minimum:"1"`
	}
}

// Faucet credits development funds to an account.
type Faucet interface {
	Deposit(ctx context.Context, owner domain.Address, amount uint64) (uint64, error)
}

// Register adds all ledger API routes to the Huma API.
func Register(api huma.API, svc *app.LedgerService) {
	registerProtocol(api, svc)
	registerColleges(api, svc)
	registerCertificates(api, svc)
}

func registerProtocol(api huma.API, svc *app.LedgerService) {
	huma.Register(api, huma.Operation{
		OperationID:   "initialize-protocol",
		Method:        http.MethodPost,
		Path:          "/api/v1/protocol",
		Summary:       "Initialize the protocol with the caller as admin",
		Tags:          []string{"Protocol"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *InitializeInput) (*ProtocolOutput, error) {
		caller, err := requireCaller(ctx)
		if err != nil {
			return nil, err
		}
		p, err := svc.Initialize(ctx, caller, input.Body.FeeAmount, input.Body.FeeDecimals, input.Body.SubscriptionPeriod)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProtocolOutput{Body: toProtocolResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-protocol",
		Method:      http.MethodGet,
		Path:        "/api/v1/protocol",
		Summary:     "Get the protocol record",
		Tags:        []string{"Protocol"},
	}, func(ctx context.Context, _ *struct{}) (*ProtocolOutput, error) {
		p, err := svc.GetProtocol(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProtocolOutput{Body: toProtocolResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-parameters",
		Method:      http.MethodPatch,
		Path:        "/api/v1/protocol",
		Summary:     "Update the fee and subscription period",
		Tags:        []string{"Protocol"},
	}, func(ctx context.Context, input *UpdateParametersInput) (*ProtocolOutput, error) {
		caller, err := requireCaller(ctx)
		if err != nil {
			return nil, err
		}
		p, err := svc.UpdateParameters(ctx, caller, input.Body.FeeAmount, input.Body.SubscriptionPeriod)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProtocolOutput{Body: toProtocolResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "withdraw-fees",
		Method:      http.MethodPost,
		Path:        "/api/v1/protocol/withdrawals",
		Summary:     "Withdraw escrowed fees to the admin",
		Tags:        []string{"Protocol"},
	}, func(ctx context.Context, input *WithdrawInput) (*ProtocolOutput, error) {
		caller, err := requireCaller(ctx)
		if err != nil {
			return nil, err
		}
		p, err := svc.Withdraw(ctx, caller, input.Body.Amount)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProtocolOutput{Body: toProtocolResponse(p)}, nil
	})
}

func registerColleges(api huma.API, svc *app.LedgerService) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-college",
		Method:        http.MethodPost,
		Path:          "/api/v1/colleges",
		Summary:       "Register a college; the caller pays the first fee",
		Tags:          []string{"Colleges"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RegisterCollegeInput) (*CollegeOutput, error) {
		caller, err := requireCaller(ctx)
		if err != nil {
			return nil, err
		}
		t, err := svc.Register(ctx, caller, domain.Address(input.Body.Authority), domain.Address(input.Body.UpdateAuthority))
		if err != nil {
			return nil, toHumaError(err)
		}
		return collegeOutput(ctx, svc, t)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-colleges",
		Method:      http.MethodGet,
		Path:        "/api/v1/colleges",
		Summary:     "List colleges",
		Tags:        []string{"Colleges"},
	}, func(ctx context.Context, input *ListCollegesInput) (*ListCollegesOutput, error) {
		filter := domain.ListFilter{Limit: input.Limit, Offset: input.Offset}
		if input.Authority != "" {
			a := domain.Address(input.Authority)
			filter.Authority = &a
		}

		p, err := svc.GetProtocol(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		tenants, err := svc.ListTenants(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]CollegeResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toCollegeResponse(t, p.Period())
		}
		return &ListCollegesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-college",
		Method:      http.MethodGet,
		Path:        "/api/v1/colleges/{id}",
		Summary:     "Get a college by id",
		Tags:        []string{"Colleges"},
	}, func(ctx context.Context, input *CollegeIDInput) (*CollegeOutput, error) {
		t, err := svc.GetTenant(ctx, domain.TenantID(input.ID))
		if err != nil {
			return nil, toHumaError(err)
		}
		return collegeOutput(ctx, svc, t)
	})

	huma.Register(api, huma.Operation{
		OperationID: "renew-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/colleges/{id}/renewals",
		Summary:     "Pay one more subscription period; the caller pays",
		Tags:        []string{"Colleges"},
	}, func(ctx context.Context, input *CollegeIDInput) (*CollegeOutput, error) {
		caller, err := requireCaller(ctx)
		if err != nil {
			return nil, err
		}
		t, err := svc.Renew(ctx, domain.TenantID(input.ID), caller)
		if err != nil {
			return nil, toHumaError(err)
		}
		return collegeOutput(ctx, svc, t)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-collection",
		Method:        http.MethodPost,
		Path:          "/api/v1/colleges/{id}/collections",
		Summary:       "Create a certificate collection for the college",
		Tags:          []string{"Colleges"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddCollectionInput) (*CollectionOutput, error) {
		caller, err := requireCaller(ctx)
		if err != nil {
			return nil, err
		}
		ref, err := svc.AddCollection(ctx, domain.TenantID(input.ID), caller, input.Body.Name, input.Body.URI)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CollectionOutput{Body: CollectionResponse{
			Address: string(ref.Address),
			Name:    ref.Name,
			URI:     ref.URI,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "mint-certificate",
		Method:        http.MethodPost,
		Path:          "/api/v1/colleges/{id}/certificates",
		Summary:       "Issue a frozen certificate to a student",
		Tags:          []string{"Colleges"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *MintCertificateInput) (*CertificateOutput, error) {
		caller, err := requireCaller(ctx)
		if err != nil {
			return nil, err
		}
		b := input.Body
		addr, err := svc.MintCertificate(ctx, domain.TenantID(input.ID), caller,
			domain.Address(b.Collection), domain.Address(b.Recipient),
			domain.CertificateMintRequest{
				Name:           b.Name,
				URI:            b.URI,
				StudentName:    b.StudentName,
				CourseName:     b.CourseName,
				CompletionDate: b.CompletionDate,
				Grade:          b.Grade,
			})
		if err != nil {
			return nil, toHumaError(err)
		}
		asset, err := svc.GetCertificate(ctx, addr)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CertificateOutput{Body: toCertificateResponse(asset)}, nil
	})
}

func registerCertificates(api huma.API, svc *app.LedgerService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-certificate",
		Method:      http.MethodGet,
		Path:        "/api/v1/certificates/{address}",
		Summary:     "Verify an issued certificate",
		Tags:        []string{"Certificates"},
	}, func(ctx context.Context, input *CertificateIDInput) (*CertificateOutput, error) {
		asset, err := svc.GetCertificate(ctx, domain.Address(input.Address))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CertificateOutput{Body: toCertificateResponse(asset)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-account",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{owner}",
		Summary:     "Get a fee token balance",
		Tags:        []string{"Accounts"},
	}, func(ctx context.Context, input *AccountInput) (*AccountOutput, error) {
		balance, err := svc.Balance(ctx, domain.Address(input.Owner))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AccountOutput{Body: AccountResponse{Owner: input.Owner, Balance: balance}}, nil
	})
}

// RegisterFaucet adds the development deposit route.
func RegisterFaucet(api huma.API, faucet Faucet) {
	huma.Register(api, huma.Operation{
		OperationID: "deposit",
		Method:      http.MethodPost,
		Path:        "/api/v1/accounts/{owner}/deposits",
		Summary:     "Credit development funds to an account",
		Tags:        []string{"Accounts"},
	}, func(ctx context.Context, input *DepositInput) (*AccountOutput, error) {
		balance, err := faucet.Deposit(ctx, domain.Address(input.Owner), input.Body.Amount)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AccountOutput{Body: AccountResponse{Owner: input.Owner, Balance: balance}}, nil
	})
}

func collegeOutput(ctx context.Context, svc *app.LedgerService, t domain.Tenant) (*CollegeOutput, error) {
	p, err := svc.GetProtocol(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &CollegeOutput{Body: toCollegeResponse(t, p.Period())}, nil
}

func requireCaller(ctx context.Context) (domain.Address, error) {
	caller := CallerFrom(ctx)
	if caller == "" {
		return "", huma.Error401Unauthorized("a bearer token is required")
	}
	return caller, nil
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	var (
		notActive    *domain.NotActiveError
		insufficient *domain.InsufficientFundsError
		validation   *domain.ValidationError
		transition   *domain.TransitionError
	)

	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrProtocolNotInitialized):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrDuplicateIdentifier):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &insufficient):
		return huma.NewError(http.StatusPaymentRequired, insufficient.Error())
	case errors.As(err, &notActive),
		errors.As(err, &validation),
		errors.As(err, &transition),
		errors.Is(err, domain.ErrCollegeNotActive),
		errors.Is(err, domain.ErrCollectionLimitReached),
		errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrCounterOverflow):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	// A decimals mismatch is a wiring fault between the ledger and its
	// payment adapter, not something the caller can correct.

	return huma.Error500InternalServerError("internal server error")
}
