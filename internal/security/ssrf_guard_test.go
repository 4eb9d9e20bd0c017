package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(10*time.Second, 5*1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != 10*time.Second {
		t.Errorf("expected timeout %v, got %v", 10*time.Second, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport for dialer-level IP validation")
	}
}

// TestNewSafeClientBlocksLoopback はSafeClientがループバックへのリクエストをブロックすることをテストする。
// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5*time.Second, 5*1024*1024)

	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestValidateURL はURL事前検証の許可・拒否の判定をテストする。
func TestValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{"公開URL https", "https://example.com/feed.xml", false},
		{"公開URL http", "http://blog.example.org/rss", false},
		{"空文字列", "", true},
		{"スキームなし", "example.com/feed", true},
		{"ftpスキーム", "ftp://example.com/feed", true},
		{"fileスキーム", "file:///etc/passwd", true},
		{"javascriptスキーム", "javascript:alert(1)", true},
		{"localhost", "http://localhost/feed", true},
		{"ループバックIP", "http://127.0.0.1/feed", true},
		{"プライベートIP 10系", "http://10.0.0.5/feed", true},
		{"プライベートIP 172系", "http://172.16.0.1/feed", true},
		{"プライベートIP 192系", "http://192.168.1.1/feed", true},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data/", true},
		{"IPv6ループバック", "http://[::1]/feed", true},
		{"公開IP", "http://93.184.216.34/feed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.rawURL, err, tt.wantErr)
			}
		})
	}
}
