// Package publish overwrites the on-wiki report page through the MediaWiki
// action API: bot-password login, CSRF token fetch, then a single edit
// replacing the page wholesale. The report is only ever published after
// every prior pipeline stage completed without error.
package publish

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/wikidata-reports/sdcusage/internal/transport"
	"github.com/wikidata-reports/sdcusage/pkg/errors"
)

// Defaults for the Wikidata report page.
const (
	DefaultAPIEndpoint = "https://www.wikidata.org/w/api.php"
	DefaultPage        = "Wikidata:Database reports/Deleted Wikidata entities used in SDC"
	editSummary        = "upd"
)

// Credentials is a bot-password account pair.
type Credentials struct {
	Username string
	Password string
}

// Publisher writes report text to a fixed wiki page.
type Publisher struct {
	endpoint  string
	page      string
	creds     Credentials
	transport *transport.Client
	logger    *zerolog.Logger
}

// New creates a Publisher. The transport's cookie jar carries the login
// session between the token, login and edit calls.
func New(endpoint, page string, creds Credentials, tc *transport.Client, logger *zerolog.Logger) *Publisher {
	if tc == nil {
		tc = transport.New()
	}
	return &Publisher{
		endpoint:  endpoint,
		page:      page,
		creds:     creds,
		transport: tc,
		logger:    logger,
	}
}

// Publish logs in, fetches a CSRF token, and overwrites the report page.
func (p *Publisher) Publish(ctx context.Context, text string) error {
	if p.creds.Username == "" || p.creds.Password == "" {
		return errors.NewConfigError("publish", "wiki credentials not configured", nil)
	}

	loginToken, err := p.token(ctx, "login")
	if err != nil {
		return err
	}
	if err := p.login(ctx, loginToken); err != nil {
		return err
	}

	csrfToken, err := p.token(ctx, "csrf")
	if err != nil {
		return err
	}
	if err := p.edit(ctx, csrfToken, text); err != nil {
		return err
	}

	p.logger.Info().Str("page", p.page).Msg("Report successfully written")
	return nil
}

// token fetches a token of the given type.
func (p *Publisher) token(ctx context.Context, kind string) (string, error) {
	q := url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {kind},
		"format": {"json"},
	}
	resp, err := p.transport.Get(ctx, p.endpoint+"?"+q.Encode())
	if err != nil {
		return "", err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return "", err
	}

	var payload struct {
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.WrapParse("json", "token response", err)
	}
	token := payload.Query.Tokens[kind+"token"]
	if token == "" {
		return "", errors.NewDataShapeError(kind+"token", "", "no token in API response")
	}
	return token, nil
}

// login performs the bot-password login.
func (p *Publisher) login(ctx context.Context, loginToken string) error {
	form := url.Values{
		"action":     {"login"},
		"lgname":     {p.creds.Username},
		"lgpassword": {p.creds.Password},
		"lgtoken":    {loginToken},
		"format":     {"json"},
	}
	resp, err := p.transport.PostForm(ctx, p.endpoint, form, "application/json")
	if err != nil {
		return err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return err
	}

	var payload struct {
		Login struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		} `json:"login"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return errors.WrapParse("json", "login response", err)
	}
	if payload.Login.Result != "Success" {
		return errors.NewAPIError(p.endpoint, 0, "login failed: "+payload.Login.Result+" "+payload.Login.Reason)
	}
	return nil
}

// edit overwrites the report page with text. The edit is marked as a bot
// edit and explicitly not minor.
func (p *Publisher) edit(ctx context.Context, csrfToken, text string) error {
	form := url.Values{
		"action":   {"edit"},
		"title":    {p.page},
		"text":     {text},
		"summary":  {editSummary},
		"bot":      {"1"},
		"notminor": {"1"},
		"token":    {csrfToken},
		"format":   {"json"},
	}
	resp, err := p.transport.PostForm(ctx, p.endpoint, form, "application/json")
	if err != nil {
		return err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return err
	}

	var payload struct {
		Edit struct {
			Result string `json:"result"`
		} `json:"edit"`
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return errors.WrapParse("json", "edit response", err)
	}
	if payload.Error != nil {
		return errors.NewAPIError(p.endpoint, 0, "edit failed: "+payload.Error.Code+": "+payload.Error.Info)
	}
	if payload.Edit.Result != "Success" {
		return errors.NewAPIError(p.endpoint, 0, "edit failed: "+payload.Edit.Result)
	}
	return nil
}
