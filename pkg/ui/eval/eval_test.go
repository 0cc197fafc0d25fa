package eval

import (
	"errors"
	"testing"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr bool
	}{
		{name: "identifier", src: "name"},
		{name: "field access", src: "item.name"},
		{name: "comparison", src: "x == 1 || x == 2"},
		{name: "call", src: "len(items) > 0"},
		{name: "surrounding space", src: "   count  "},
		{name: "empty", src: "   ", wantErr: true},
		{name: "dangling operator", src: "x ==", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src)
			if (err != nil) != tt.wantErr {
				t.Errorf("Compile(%q) error = %v, wantErr %v", tt.src, err, tt.wantErr)
			}
		})
	}
}

func TestCompileEmptyIsErrEmpty(t *testing.T) {
	_, err := Compile("")
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("Compile(\"\") error = %v, want ErrEmpty", err)
	}
	var exprErr *Error
	if !errors.As(err, &exprErr) {
		t.Fatalf("error %T is not *Error", err)
	}
}

func TestExprString(t *testing.T) {
	e := MustCompile("  item.name ")
	if got := e.String(); got != "item.name" {
		t.Errorf("String() = %q, want %q", got, "item.name")
	}
}

func TestEval(t *testing.T) {
	env := map[string]any{
		"name":  "Ada",
		"count": 3,
		"item":  map[string]any{"title": "Note"},
		"items": []any{"a", "b"},
	}

	tests := []struct {
		src  string
		want any
	}{
		{src: "name", want: "Ada"},
		{src: "count + 1", want: 4},
		{src: "item.title", want: "Note"},
		{src: "items[1]", want: "b"},
		{src: "count > 2 && name == 'Ada'", want: true},
		{src: "missing", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := MustCompile(tt.src).Eval(env)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEvalErrorPropagates(t *testing.T) {
	e := MustCompile("1 / zero")
	if _, err := e.Eval(map[string]any{"zero": "text"}); err == nil {
		t.Fatal("expected evaluation error")
	}
}
