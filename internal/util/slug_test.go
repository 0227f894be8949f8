package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple title",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "with special characters",
			input:    "Hello, World!",
			expected: "hello-world",
		},
		{
			name:     "with numbers",
			input:    "Post 123",
			expected: "post-123",
		},
		{
			name:     "with accents",
			input:    "Café résumé",
			expected: "cafe-resume",
		},
		{
			name:     "with multiple spaces",
			input:    "Hello   World",
			expected: "hello-world",
		},
		{
			name:     "with leading/trailing spaces",
			input:    "  Hello World  ",
			expected: "hello-world",
		},
		{
			name:     "transliterated ligature",
			input:    "Æther Theory",
			expected: "aether-theory",
		},
		{
			name:     "german umlauts",
			input:    "Über München",
			expected: "uber-munchen",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "mixed case",
			input:    "HeLLo WoRLd",
			expected: "hello-world",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slugify(tt.input)
			if result != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTagSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase word", input: "go", expected: "go"},
		{name: "mixed case", input: "Web3", expected: "web3"},
		{name: "spaces to hyphens", input: "smart contracts", expected: "smart-contracts"},
		{name: "whitespace run", input: "Smart   Contracts", expected: "smart-contracts"},
		{name: "tab and space", input: "smart \tcontracts", expected: "smart-contracts"},
		{name: "already hyphenated", input: "smart-contracts", expected: "smart-contracts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagSlug(tt.input); got != tt.expected {
				t.Errorf("TagSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	// Names differing only by case or whitespace-vs-hyphen must converge.
	variants := []string{"Smart Contracts", "smart contracts", "SMART  CONTRACTS", "smart-contracts"}
	for _, v := range variants {
		if got := TagSlug(v); got != "smart-contracts" {
			t.Errorf("TagSlug(%q) = %q, want convergence on %q", v, got, "smart-contracts")
		}
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "valid simple slug", input: "hello-world", expected: true},
		{name: "valid slug with numbers", input: "post-123", expected: true},
		{name: "valid single word", input: "hello", expected: true},
		{name: "invalid - empty", input: "", expected: false},
		{name: "invalid - uppercase", input: "Hello-World", expected: false},
		{name: "invalid - spaces", input: "hello world", expected: false},
		{name: "invalid - leading hyphen", input: "-hello", expected: false},
		{name: "invalid - trailing hyphen", input: "hello-", expected: false},
		{name: "invalid - double hyphen", input: "hello--world", expected: false},
		{name: "invalid - special chars", input: "hello_world", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidSlug(tt.input); got != tt.expected {
				t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
