package store

import (
	"reflect"
	"testing"
)

func TestSplitCamelCase(t *testing.T) {
	cases := map[string][]string{
		"getUserById":      {"get", "User", "By", "Id"},
		"HTTPHandler":      {"HTTP", "Handler"},
		"parseHTTPRequest": {"parse", "HTTP", "Request"},
		"":                 {},
	}
	for in, want := range cases {
		got := SplitCamelCase(in)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("SplitCamelCase(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTokenizeCodeSplitsSnakeAndCamel(t *testing.T) {
	tokens := TokenizeCode("func parseHTTPRequest(user_id int) {}")
	want := []string{"func", "parse", "http", "request", "user", "id", "int"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("TokenizeCode = %v, want %v", tokens, want)
	}
}

func TestTokenizeCodeDropsShortTokens(t *testing.T) {
	tokens := TokenizeCode("a i x foo")
	if !reflect.DeepEqual(tokens, []string{"foo"}) {
		t.Errorf("expected single-char tokens dropped, got %v", tokens)
	}
}
