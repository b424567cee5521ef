package compliance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lead-enrichment/internal/audit"
)

// ExportSigner signs portability packages so recipients can verify they were
// produced by this service and not altered in transit.
type ExportSigner struct {
	key []byte
	now func() time.Time
}

func NewExportSigner(key string) *ExportSigner {
	return &ExportSigner{key: []byte(key), now: time.Now}
}

type exportClaims struct {
	LeadID string `json:"leadId"`
	Digest string `json:"digest"`
	jwt.RegisteredClaims
}

// Sign produces a compact JWS over the SHA-256 digest of the package content.
func (s *ExportSigner) Sign(leadID string, content []byte) (string, error) {
	digest := sha256.Sum256(content)
	claims := exportClaims{
		LeadID: leadID,
		Digest: hex.EncodeToString(digest[:]),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "lead-enrichment",
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign export package: %w", err)
	}
	return signed, nil
}

// Verify checks a package signature against its content.
func (s *ExportSigner) Verify(signature string, content []byte) error {
	var claims exportClaims
	_, err := jwt.ParseWithClaims(signature, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return fmt.Errorf("verify export signature: %w", err)
	}

	digest := sha256.Sum256(content)
	if claims.Digest != hex.EncodeToString(digest[:]) {
		return fmt.Errorf("export package digest mismatch")
	}
	return nil
}

// ExportForPortability assembles everything held about a lead into a signed
// package: the lead record itself and the full audit trail. The export is
// itself an audited, fail-closed compliance event.
func (g *Gate) ExportForPortability(ctx context.Context, leadID string, signer *ExportSigner) (*DataPackage, error) {
	l, err := g.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	trail, err := g.auditor.List(ctx, leadID)
	if err != nil {
		return nil, err
	}

	pkg := &DataPackage{
		LeadID:      leadID,
		Lead:        l,
		AuditTrail:  trail,
		GeneratedAt: g.now(),
	}

	content, err := json.Marshal(struct {
		LeadID      string        `json:"leadId"`
		Lead        any           `json:"lead"`
		AuditTrail  []audit.Event `json:"auditTrail"`
		GeneratedAt time.Time     `json:"generatedAt"`
	}{pkg.LeadID, pkg.Lead, pkg.AuditTrail, pkg.GeneratedAt})
	if err != nil {
		return nil, fmt.Errorf("encode export package: %w", err)
	}
	if pkg.Signature, err = signer.Sign(leadID, content); err != nil {
		return nil, err
	}

	if err := g.auditor.Emit(ctx, audit.Event{
		LeadID: leadID,
		Type:   audit.EventDataExported,
		Data:   map[string]any{"auditEvents": len(trail)},
	}); err != nil {
		return nil, err
	}
	return pkg, nil
}
