package delivery

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/fanout-engine/config"
	"github.com/d60-Lab/fanout-engine/internal/model"
)

const contentType = "application/activity+json"

// Transport delivers signed activity documents to remote inboxes.
// Requests carry a draft-cavage HTTP signature issued as the acting
// identity; each destination host gets its own rate limiter.
type Transport struct {
	client    *http.Client
	userAgent string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func NewTransport(cfg config.DeliveryConfig) *Transport {
	return &Transport{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		limiters:  make(map[string]*rate.Limiter),
		rate:      rate.Limit(cfg.Rate),
		burst:     cfg.Burst,
	}
}

func (t *Transport) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(t.rate, t.burst)
		t.limiters[host] = l
	}
	return l
}

// SignedRequest performs one signed delivery as the acting identity.
// Any non-2xx response is an error; the caller decides about retries.
func (t *Transport) SignedRequest(ctx context.Context, acting *model.Identity, method, uri string, body []byte) error {
	u, err := url.Parse(uri)
	if err != nil {
		return errors.Wrapf(err, "parse target uri %q", uri)
	}
	if err := t.limiter(u.Host).Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, bytes.NewReader(body))
	if err != nil {
		return err
	}

	digest := sha256.Sum256(body)
	date := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Date", date)
	req.Header.Set("Digest", "SHA-256="+base64.StdEncoding.EncodeToString(digest[:]))

	sig, err := sign(acting, method, u, date, req.Header.Get("Digest"))
	if err != nil {
		return errors.Wrapf(err, "sign request as %s", acting.Handle())
	}
	req.Header.Set("Signature", sig)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf("inbox %s answered %d", uri, resp.StatusCode)
	}
	return nil
}

// sign builds the draft-cavage Signature header over
// (request-target), host, date and digest.
func sign(acting *model.Identity, method string, u *url.URL, date, digest string) (string, error) {
	key, err := parsePrivateKey(acting.PrivateKeyPEM)
	if err != nil {
		return "", err
	}
	target := u.Path
	if target == "" {
		target = "/"
	}
	signingString := strings.Join([]string{
		"(request-target): " + strings.ToLower(method) + " " + target,
		"host: " + u.Host,
		"date: " + date,
		"digest: " + digest,
	}, "\n")
	hashed := sha256.Sum256([]byte(signingString))
	raw, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hashed[:])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		`keyId="%s",algorithm="rsa-sha256",headers="(request-target) host date digest",signature="%s"`,
		acting.KeyID(),
		base64.StdEncoding.EncodeToString(raw),
	), nil
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("identity has no private key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}
