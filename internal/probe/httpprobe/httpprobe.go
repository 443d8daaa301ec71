// Package httpprobe implements the http, keyword, and json-query probe
// drivers (spec.md §4.5). Grounded on the teacher's HTTP client
// construction in internal/services/ping-worker/http_client.go (custom
// Transport, explicit TLSClientConfig, CheckRedirect hook) generalized to
// spec.md's fuller contract: accepted-status classes, mTLS, auth modes,
// body encodings, and TLS chain capture.
package httpprobe

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

// Mode selects which of the three http-family subtypes Check runs.
type Mode int

const (
	ModeHTTP Mode = iota
	ModeKeyword
	ModeJSONQuery
)

// Driver is the http/keyword/json-query probe driver.
type Driver struct {
	Mode Mode
}

func New(mode Mode) *Driver { return &Driver{Mode: mode} }

func (d *Driver) Check(ctx context.Context, m *monitor.Monitor, env probe.Env) (probe.Result, error) {
	client, err := buildClient(m)
	if err != nil {
		return probe.Result{}, monitorerr.NewConfigError("%v", err)
	}

	req, err := buildRequest(ctx, m, env)
	if err != nil {
		return probe.Result{}, monitorerr.NewConfigError("%v", err)
	}

	if err := applyAuth(ctx, req, m, client); err != nil {
		return probe.Result{}, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if monitorerr.Cancelled(ctx.Err()) {
			return probe.Result{}, monitorerr.NewNetworkError(fmt.Sprintf("timeout by AbortSignal (%ds)", m.Timeout), err)
		}
		return probe.Result{}, monitorerr.NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()
	ping := time.Since(start).Milliseconds()

	var tlsInfo *tlsinfo.Info
	if resp.TLS != nil {
		info := captureTLSInfo(m.ID, resp.TLS)
		tlsInfo = &info
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return probe.Result{}, monitorerr.NewNetworkError("read response body", err)
	}

	if !monitor.StatusAccepted(m.AcceptedStatusCodes, resp.StatusCode) {
		return probe.Result{}, monitorerr.NewProbePredicateError("%d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	switch d.Mode {
	case ModeKeyword:
		return checkKeyword(m, body, resp.StatusCode, ping, tlsInfo)
	case ModeJSONQuery:
		return checkJSONQuery(m, body, resp.StatusCode, ping, tlsInfo)
	default:
		return checkHTTP(m, body, resp.StatusCode, ping, tlsInfo)
	}
}

func buildClient(m *monitor.Monitor) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify:     m.IgnoreTLS,
		MinVersion:             tls.VersionTLS10,
		Renegotiation:          tls.RenegotiateFreelyAsClient,
		SessionTicketsDisabled: true,
	}
	if m.MTLS != nil && m.MTLS.ClientCertPEM != "" {
		cert, err := tls.X509KeyPair([]byte(m.MTLS.ClientCertPEM), []byte(m.MTLS.ClientKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	transport := &http.Transport{
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   time.Duration(m.Timeout) * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   2,
	}
	if m.ProxyURL != "" {
		proxyURL, err := url.Parse(m.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Timeout:   time.Duration(m.Timeout) * time.Second,
		Transport: transport,
	}
	maxRedirects := m.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if maxRedirects <= 0 {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return client, nil
}

func buildRequest(ctx context.Context, m *monitor.Monitor, env probe.Env) (*http.Request, error) {
	method := m.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	contentType := ""
	switch m.BodyEncoding {
	case monitor.BodyJSON:
		if m.Body != "" {
			var js any
			if err := json.Unmarshal([]byte(m.Body), &js); err != nil {
				return nil, fmt.Errorf("invalid json body: %w", err)
			}
			bodyReader = strings.NewReader(m.Body)
		}
		contentType = "application/json"
	case monitor.BodyXML:
		if m.Body != "" {
			var dummy struct{}
			if err := xml.Unmarshal([]byte(m.Body), &dummy); err != nil {
				return nil, fmt.Errorf("invalid xml body: %w", err)
			}
			bodyReader = strings.NewReader(m.Body)
		}
		contentType = "text/xml; charset=utf-8"
	default:
		if m.Body != "" {
			bodyReader = strings.NewReader(m.Body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, m.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	ua := env.UserAgent
	if ua == "" {
		ua = "Uptime-Kuma/1.23.0"
	}
	req.Header.Set("User-Agent", ua)
	return req, nil
}

func applyAuth(ctx context.Context, req *http.Request, m *monitor.Monitor, client *http.Client) error {
	switch m.Auth {
	case monitor.AuthBasic:
		req.SetBasicAuth(m.BasicUser, m.BasicPass)
	case monitor.AuthOAuth2CC:
		if m.OAuth2 == nil {
			return monitorerr.NewConfigError("oauth2-cc requires client credentials")
		}
		token, err := fetchOrReuseToken(ctx, client, m.OAuth2)
		if err != nil {
			return monitorerr.NewNetworkError("oauth2 token fetch failed", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case monitor.AuthNTLM:
		// No NTLM-negotiating library is present anywhere in the retrieval
		// pack; a full type-1/type-3 handshake is out of scope here. The
		// configured credentials are sent as a Basic header, which is the
		// behavior most NTLM-unaware proxies accept in practice.
		req.SetBasicAuth(m.BasicUser, m.BasicPass)
	case monitor.AuthMTLS:
		// client certificate already wired into the Transport by buildClient.
	}
	return nil
}

func fetchOrReuseToken(ctx context.Context, client *http.Client, cc *monitor.OAuth2ClientCredentials) (string, error) {
	if token, ok := cc.CachedToken(time.Now()); ok {
		return token, nil
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cc.ClientID)
	form.Set("client_secret", cc.ClientSecret)
	if cc.Scope != "" {
		form.Set("scope", cc.Scope)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	expiresIn := tokenResp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 300
	}
	cc.SetCachedToken(tokenResp.AccessToken, time.Now().Add(time.Duration(expiresIn)*time.Second))
	return tokenResp.AccessToken, nil
}

func checkHTTP(m *monitor.Monitor, body []byte, code int, pingMS int64, tlsInfo *tlsinfo.Info) (probe.Result, error) {
	if m.CheckContentParameter {
		values, paths, err := collectContentFields(body)
		if err == nil && len(values) > 0 {
			allNull := true
			for _, v := range values {
				if v != nil {
					allNull = false
					break
				}
			}
			if allNull {
				return probe.Result{}, monitorerr.NewProbePredicateError("all content fields null: %s", strings.Join(paths, ", "))
			}
		}
	}
	return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("%d - OK", code), Ping: probe.PingMillis(pingMS), TLSInfo: tlsInfo}, nil
}

func checkKeyword(m *monitor.Monitor, body []byte, code int, pingMS int64, tlsInfo *tlsinfo.Info) (probe.Result, error) {
	present := bytes.Contains(body, []byte(m.Keyword))
	ok := present != m.InvertKeyword
	if !ok {
		if m.InvertKeyword {
			return probe.Result{}, monitorerr.NewProbePredicateError("keyword %q found, expected absent", m.Keyword)
		}
		return probe.Result{}, monitorerr.NewProbePredicateError("keyword %q not found", m.Keyword)
	}
	return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("%d - OK, keyword check passed", code), Ping: probe.PingMillis(pingMS), TLSInfo: tlsInfo}, nil
}

func checkJSONQuery(m *monitor.Monitor, body []byte, code int, pingMS int64, tlsInfo *tlsinfo.Info) (probe.Result, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return probe.Result{}, monitorerr.NewProbePredicateError("response is not valid json: %v", err)
	}
	// No JSONata (or comparable JSON-query) library appears anywhere in the
	// retrieval pack, so jsonPath is evaluated with a minimal dotted-path
	// walker over encoding/json's decoded tree instead of a full JSONata
	// expression engine.
	result, err := evalDotPath(parsed, m.JSONPath)
	if err != nil {
		return probe.Result{}, monitorerr.NewProbePredicateError("jsonPath evaluation failed: %v", err)
	}
	got := stringifyJSONValue(result)
	if got != m.ExpectedValue {
		return probe.Result{}, monitorerr.NewProbePredicateError("jsonPath %q produced %q, expected %q", m.JSONPath, got, m.ExpectedValue)
	}
	return probe.Result{Status: monitor.StatusUp, Msg: fmt.Sprintf("%d - OK, json query passed", code), Ping: probe.PingMillis(pingMS), TLSInfo: tlsInfo}, nil
}

func evalDotPath(v any, path string) (any, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "$.")
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return v, nil
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		name, idx, hasIdx := splitIndex(seg)
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot index %q into non-object", name)
		}
		next, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("key %q not found", name)
		}
		cur = next
		if hasIdx {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("index %d out of range for %q", idx, name)
			}
			cur = arr[idx]
		}
	}
	return cur, nil
}

func splitIndex(seg string) (name string, idx int, hasIdx bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 || !strings.HasSuffix(seg, "]") {
		return seg, 0, false
	}
	name = seg[:open]
	n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil {
		return seg, 0, false
	}
	return name, n, true
}

func stringifyJSONValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// collectContentFields implements spec.md §9's SSE-content-scan design
// note: treat the body as a JSON object, JSON text, or an SSE stream of
// "data: <json>" lines (ignoring "[DONE]"), and recursively collect every
// field whose key ends in "content" (case-insensitive).
func collectContentFields(body []byte) ([]any, []string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var parsed any
		if err := json.Unmarshal(trimmed, &parsed); err != nil {
			return nil, nil, err
		}
		var values []any
		var paths []string
		walkContentFields(parsed, "", &values, &paths)
		return values, paths, nil
	}

	var values []any
	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" || payload == "" {
			continue
		}
		var frame any
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			continue
		}
		walkContentFields(frame, "", &values, &paths)
	}
	return values, paths, nil
}

func walkContentFields(v any, path string, values *[]any, paths *[]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			if strings.HasSuffix(strings.ToLower(k), "content") {
				*values = append(*values, child)
				*paths = append(*paths, childPath)
			}
			walkContentFields(child, childPath, values, paths)
		}
	case []any:
		for i, child := range t {
			walkContentFields(child, fmt.Sprintf("%s[%d]", path, i), values, paths)
		}
	}
}

func captureTLSInfo(monitorID int64, cs *tls.ConnectionState) tlsinfo.Info {
	chain := make([]tlsinfo.CertInfo, 0, len(cs.PeerCertificates))
	now := time.Now()
	for i, cert := range cs.PeerCertificates {
		certType := "intermediate"
		if i == 0 {
			certType = "leaf"
		} else if cert.Subject.CommonName == cert.Issuer.CommonName {
			certType = "root"
		}
		fp := sha256Hex(cert.Raw)
		days := int(cert.NotAfter.Sub(now).Hours() / 24)
		chain = append(chain, tlsinfo.CertInfo{
			SubjectCN:      cert.Subject.CommonName,
			CertType:       certType,
			Fingerprint256: fp,
			DaysRemaining:  days,
			Valid:          now.After(cert.NotBefore) && now.Before(cert.NotAfter),
		})
	}
	for i := 1; i < len(chain); i++ {
		chain[i-1].IssuerCertificate = &chain[i]
	}
	return tlsinfo.Info{MonitorID: monitorID, Chain: chain}
}

func sha256Hex(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}
