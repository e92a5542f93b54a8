package search

import "testing"

func TestClassifier_DottedPathIsSymbolLookup(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("widget.Render"); got != ClassSymbolLookup {
		t.Errorf("expected symbol_lookup, got %v", got)
	}
}

func TestClassifier_NamespacedSymbolIsSymbolLookup(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("pkg::Func"); got != ClassSymbolLookup {
		t.Errorf("expected symbol_lookup, got %v", got)
	}
}

func TestClassifier_BareIdentifierIsSymbolLookup(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("handleRequest"); got != ClassSymbolLookup {
		t.Errorf("expected symbol_lookup, got %v", got)
	}
	if got := c.Classify("snake_case_name"); got != ClassSymbolLookup {
		t.Errorf("expected symbol_lookup, got %v", got)
	}
}

func TestClassifier_LongIdentifierIsNotSymbolLookup(t *testing.T) {
	c := NewClassifier()
	long := "aVeryLongIdentifierNameThatExceedsFortyCharactersTotal"
	if got := c.Classify(long); got == ClassSymbolLookup {
		t.Errorf("expected identifiers over 40 chars to fall through, got %v", got)
	}
}

func TestClassifier_MultiWordQuestionIsNaturalLanguage(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("how does the retry logic work"); got != ClassNaturalLanguage {
		t.Errorf("expected natural_language, got %v", got)
	}
}

func TestClassifier_TwoWordQueryIsMixed(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("retry logic"); got != ClassMixed {
		t.Errorf("expected mixed for a 2-word query, got %v", got)
	}
}

func TestClassifier_MultiWordWithPathSeparatorIsMixed(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("where is internal/store used"); got != ClassMixed {
		t.Errorf("expected mixed when a path separator is present, got %v", got)
	}
}

func TestClassifier_EmptyQueryIsMixed(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("   "); got != ClassMixed {
		t.Errorf("expected mixed for an empty query, got %v", got)
	}
}
