package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Vendor response shapes and normalizers. Each vendor has its own wire
// schema; the decode functions flatten them into the shared Output so the
// rest of the pipeline never sees vendor-specific fields.

// --- property: atlasdata (primary), parcelio (fallback) ---

type atlasdataResponse struct {
	Parcel struct {
		AssessedValue float64 `json:"assessed_value"`
		LienBalance   float64 `json:"lien_balance"`
		Class         string  `json:"class"`
		YearBuilt     int     `json:"year_built"`
		LivingAreaSF  int     `json:"living_area_sf"`
	} `json:"parcel"`
	LastTransfer struct {
		Date  string  `json:"date"`
		Price float64 `json:"price"`
	} `json:"last_transfer"`
	OwnerMatch bool   `json:"owner_match"`
	AsOf       string `json:"as_of"`
}

func decodeAtlasdata(body []byte) (*Output, error) {
	var r atlasdataResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &Output{
		DataAsOf: parseVendorDate(r.AsOf),
		Property: &PropertyData{
			PropertyValue:     r.Parcel.AssessedValue,
			MortgageBalance:   r.Parcel.LienBalance,
			PropertyType:      strings.ToLower(r.Parcel.Class),
			YearBuilt:         r.Parcel.YearBuilt,
			SquareFeet:        r.Parcel.LivingAreaSF,
			LastSaleDate:      r.LastTransfer.Date,
			LastSalePrice:     r.LastTransfer.Price,
			OwnershipVerified: r.OwnerMatch,
		},
	}, nil
}

type parcelioResponse struct {
	Valuation     float64 `json:"valuation"`
	MortgageOwed  float64 `json:"mortgageOwed"`
	DwellingType  string  `json:"dwellingType"`
	Built         int     `json:"built"`
	Sqft          int     `json:"sqft"`
	SoldDate      string  `json:"soldDate"`
	SoldPrice     float64 `json:"soldPrice"`
	TitleVerified bool    `json:"titleVerified"`
	UpdatedAt     string  `json:"updatedAt"`
}

func decodeParcelio(body []byte) (*Output, error) {
	var r parcelioResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &Output{
		DataAsOf: parseVendorDate(r.UpdatedAt),
		Property: &PropertyData{
			PropertyValue:     r.Valuation,
			MortgageBalance:   r.MortgageOwed,
			PropertyType:      strings.ToLower(r.DwellingType),
			YearBuilt:         r.Built,
			SquareFeet:        r.Sqft,
			LastSaleDate:      r.SoldDate,
			LastSalePrice:     r.SoldPrice,
			OwnershipVerified: r.TitleVerified,
		},
	}, nil
}

// --- social: linkgraph (primary), socialmesh (fallback) ---

type linkgraphResponse struct {
	Profiles struct {
		LinkedIn struct {
			URL         string `json:"url"`
			Headline    string `json:"headline"`
			Company     string `json:"company"`
			Connections int    `json:"connections"`
		} `json:"linkedin"`
		Twitter struct {
			Handle    string `json:"handle"`
			Followers int    `json:"followers"`
		} `json:"twitter"`
	} `json:"profiles"`
	IdentityConfirmed bool   `json:"identity_confirmed"`
	RefreshedAt       string `json:"refreshed_at"`
}

func decodeLinkgraph(body []byte) (*Output, error) {
	var r linkgraphResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &Output{
		DataAsOf: parseVendorDate(r.RefreshedAt),
		Social: &SocialData{
			LinkedInURL:      r.Profiles.LinkedIn.URL,
			JobTitle:         r.Profiles.LinkedIn.Headline,
			Employer:         r.Profiles.LinkedIn.Company,
			ConnectionCount:  r.Profiles.LinkedIn.Connections,
			TwitterHandle:    r.Profiles.Twitter.Handle,
			FollowerCount:    r.Profiles.Twitter.Followers,
			ProfilesVerified: r.IdentityConfirmed,
		},
	}, nil
}

type socialmeshResponse struct {
	LinkedinProfile string `json:"linkedinProfile"`
	Title           string `json:"title"`
	Org             string `json:"org"`
	NetworkSize     int    `json:"networkSize"`
	TwitterName     string `json:"twitterName"`
	TwitterReach    int    `json:"twitterReach"`
	Verified        bool   `json:"verified"`
	AsOf            string `json:"asOf"`
}

func decodeSocialmesh(body []byte) (*Output, error) {
	var r socialmeshResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &Output{
		DataAsOf: parseVendorDate(r.AsOf),
		Social: &SocialData{
			LinkedInURL:      r.LinkedinProfile,
			JobTitle:         r.Title,
			Employer:         r.Org,
			ConnectionCount:  r.NetworkSize,
			TwitterHandle:    r.TwitterName,
			FollowerCount:    r.TwitterReach,
			ProfilesVerified: r.Verified,
		},
	}, nil
}

// --- credit: bureaux-prime (primary), bureau-backup (fallback) ---

type bureauxPrimeResponse struct {
	Score struct {
		Value    int  `json:"value"`
		Verified bool `json:"verified"`
	} `json:"score"`
	Tradelines struct {
		UtilizationPct float64 `json:"utilization_pct"`
		PaymentRating  string  `json:"payment_rating"`
		Derogatories   int     `json:"derogatories"`
	} `json:"tradelines"`
	HardInquiries6Mo int    `json:"hard_inquiries_6mo"`
	ReportDate       string `json:"report_date"`
}

func decodeBureauxPrime(body []byte) (*Output, error) {
	var r bureauxPrimeResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &Output{
		DataAsOf: parseVendorDate(r.ReportDate),
		Credit: &CreditData{
			CreditScore:          r.Score.Value,
			ScoreVerified:        r.Score.Verified,
			CreditUtilization:    r.Tradelines.UtilizationPct / 100,
			PaymentHistory:       normalizePaymentHistory(r.Tradelines.PaymentRating),
			DerogatoryMarks:      r.Tradelines.Derogatories,
			InquiriesLast6Months: r.HardInquiries6Mo,
		},
	}, nil
}

type bureauBackupResponse struct {
	FicoScore      int     `json:"ficoScore"`
	ScoreConfirmed bool    `json:"scoreConfirmed"`
	Utilization    float64 `json:"utilization"`
	History        string  `json:"history"`
	Derogs         int     `json:"derogs"`
	RecentPulls    int     `json:"recentPulls"`
	PulledAt       string  `json:"pulledAt"`
}

func decodeBureauBackup(body []byte) (*Output, error) {
	var r bureauBackupResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &Output{
		DataAsOf: parseVendorDate(r.PulledAt),
		Credit: &CreditData{
			CreditScore:          r.FicoScore,
			ScoreVerified:        r.ScoreConfirmed,
			CreditUtilization:    r.Utilization,
			PaymentHistory:       normalizePaymentHistory(r.History),
			DerogatoryMarks:      r.Derogs,
			InquiriesLast6Months: r.RecentPulls,
		},
	}, nil
}

// normalizePaymentHistory maps vendor rating vocabularies onto the canonical
// excellent/good/fair/poor scale. Unknown values pass through lowercased and
// get flagged by the validation engine.
func normalizePaymentHistory(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "excellent", "exceptional", "a":
		return "excellent"
	case "good", "b":
		return "good"
	case "fair", "average", "c":
		return "fair"
	case "poor", "bad", "d", "f":
		return "poor"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// parseVendorDate tolerates the date formats seen across vendors. A zero time
// means unknown freshness; confidence scoring treats that as stale-neutral.
func parseVendorDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// endpoint builds the vendor's lookup and health URLs from a base.
func endpoint(base string) (lookup, health string) {
	base = strings.TrimSuffix(base, "/")
	return fmt.Sprintf("%s/v1/lookup", base), fmt.Sprintf("%s/v1/health", base)
}

// vendorDecoders registers the known vendor response formats.
var vendorDecoders = map[string]func(body []byte) (*Output, error){
	"atlasdata":     decodeAtlasdata,
	"parcelio":      decodeParcelio,
	"linkgraph":     decodeLinkgraph,
	"socialmesh":    decodeSocialmesh,
	"bureaux-prime": decodeBureauxPrime,
	"bureau-backup": decodeBureauBackup,
}

// BuildVendor wires a configured vendor endpoint to its registered decoder.
func BuildVendor(name, baseURL, authStyle, credential string, client *http.Client) (*HTTPVendor, error) {
	decode, ok := vendorDecoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown vendor %q", name)
	}
	lookup, health := endpoint(baseURL)
	return NewHTTPVendor(HTTPVendorConfig{
		Name:       name,
		LookupURL:  lookup,
		HealthURL:  health,
		AuthStyle:  AuthStyle(authStyle),
		Credential: credential,
		Client:     client,
	}, decode), nil
}
