package gateway

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/WhitehatD/Student-Identity-Consent/consent"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

// Errors returned by Gateway.StudentData
var (
	ErrStudentNotFound = errors.New("no student with this cid exists")
	ErrUnauthorized    = errors.New("requester address is required")
)

const socialProfilePlaceholder = "Social profile data not yet implemented"

// WalletResolver resolves a cid to the registered Wallet
type WalletResolver interface {
	ByCID(ctx context.Context, cid string) (*model.Wallet, error)
}

// ConsentChecker checks a batch of consents; it is implemented by
// *consent.Service
type ConsentChecker interface {
	CheckMultipleConsents(
		ctx context.Context, owner, requester string, dataTypes []consent.DataType,
	) map[consent.DataType]bool
}

// Gateway assembles the off-chain data of a student, section by section,
// from what the requester has been granted
type Gateway struct {
	wallets  WalletResolver
	records  model.RecordStore
	consents ConsentChecker
}

// New creates a new Gateway
func New(wallets WalletResolver, records model.RecordStore, consents ConsentChecker) *Gateway {
	return &Gateway{
		wallets:  wallets,
		records:  records,
		consents: consents,
	}
}

// BasicProfile is the section released with consent.BasicProfile
type BasicProfile struct {
	DisplayName   string `json:"displayName"`
	WalletAddress string `json:"walletAddress"`
	CID           string `json:"cid"`
}

// AcademicRecord is the section released with consent.AcademicRecord
type AcademicRecord struct {
	Grades       []model.GradeView   `json:"grades"`
	Certificates []model.Certificate `json:"certificates"`
}

// SocialProfile is the section released with consent.SocialProfile
type SocialProfile struct {
	Message string `json:"message"`
	Friends []any  `json:"friends"`
	Posts   []any  `json:"posts"`
}

// Sections holds one entry per data type; a section is nil if the requester
// holds no valid consent for it
type Sections struct {
	BasicProfile   *BasicProfile   `json:"basicProfile"`
	AcademicRecord *AcademicRecord `json:"academicRecord"`
	SocialProfile  *SocialProfile  `json:"socialProfile"`
}

// StudentData is the consent-gated view of a student's off-chain data
type StudentData struct {
	StudentAddress string                    `json:"studentAddress"`
	Data           Sections                  `json:"data"`
	Consents       map[consent.DataType]bool `json:"consents"`
}

// StudentData returns the data of the student registered under cid that
// requester may see. The consents of all data types are checked in one batch
// and every section is filled independently of the others.
func (g *Gateway) StudentData(ctx context.Context, cid, requester string) (*StudentData, error) {
	if strings.TrimSpace(requester) == "" {
		return nil, errors.WithStack(ErrUnauthorized)
	}
	wallet, err := g.wallets.ByCID(ctx, cid)
	if err != nil {
		var notFound model.NotFoundError
		if errors.As(err, &notFound) {
			return nil, errors.Wrap(ErrStudentNotFound, cid)
		}
		return nil, err
	}

	consents := g.consents.CheckMultipleConsents(ctx, wallet.WalletAddress, requester, consent.AllDataTypes())
	logger := log.WithFields(
		log.Fields{
			"cid":       cid,
			"student":   wallet.WalletAddress,
			"requester": requester,
		},
	)

	data := &StudentData{
		StudentAddress: wallet.WalletAddress,
		Consents:       consents,
	}
	if consents[consent.BasicProfile] {
		data.Data.BasicProfile = &BasicProfile{
			DisplayName:   wallet.DisplayName,
			WalletAddress: wallet.WalletAddress,
			CID:           wallet.CID,
		}
	}
	if consents[consent.AcademicRecord] {
		data.Data.AcademicRecord, err = g.academicRecord(ctx, cid)
		if err != nil {
			return nil, err
		}
	}
	if consents[consent.SocialProfile] {
		data.Data.SocialProfile = &SocialProfile{
			Message: socialProfilePlaceholder,
			Friends: []any{},
			Posts:   []any{},
		}
	}
	logger.WithFields(
		log.Fields{
			"basic_profile":   consents[consent.BasicProfile],
			"academic_record": consents[consent.AcademicRecord],
			"social_profile":  consents[consent.SocialProfile],
		},
	).Debug("assembled student data")
	return data, nil
}

func (g *Gateway) academicRecord(ctx context.Context, cid string) (*AcademicRecord, error) {
	grades, err := g.records.Grades(ctx, cid)
	if err != nil {
		return nil, err
	}
	certs, err := g.records.Certificates(ctx, cid)
	if err != nil {
		return nil, err
	}
	if grades == nil {
		grades = []model.GradeView{}
	}
	if certs == nil {
		certs = []model.Certificate{}
	}
	return &AcademicRecord{
		Grades:       grades,
		Certificates: certs,
	}, nil
}
