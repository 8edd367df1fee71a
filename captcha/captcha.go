// Package captcha verifies the human-verification token sent with the
// identity step.
package captcha

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const SiteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var ErrChallengeFailed = errors.New("captcha: challenge failed")

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type Recaptcha struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

func NewRecaptcha(secret string) *Recaptcha {
	return &Recaptcha{
		Secret:   secret,
		Endpoint: SiteVerifyURL,
		Client:   http.DefaultClient,
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (rc *Recaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	form := url.Values{
		"secret":   {rc.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "captcha: new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := rc.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "captcha: http")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("captcha: http %d", resp.StatusCode)
	}

	var body siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err != nil {
		return errors.Wrap(err, "captcha: json decode")
	}
	if !body.Success {
		return errors.Wrap(ErrChallengeFailed, strings.Join(body.ErrorCodes, ","))
	}
	return nil
}
