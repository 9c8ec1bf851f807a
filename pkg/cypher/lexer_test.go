package cypher

import "testing"

func TestLexBasicTokens(t *testing.T) {
	tokens, err := lex("MATCH (n:Person {age: 30}) WHERE n.age > 25 RETURN n.name")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if tokens[len(tokens)-1].Kind != TokEOF {
		t.Fatalf("expected trailing EOF token")
	}
	var kinds []TokenKind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{
		TokIdent, TokLParen, TokIdent, TokColon, TokIdent, TokLBrace, TokIdent, TokColon, TokInt, TokRBrace, TokRParen,
		TokIdent, TokIdent, TokDot, TokIdent, TokGt, TokInt,
		TokIdent, TokIdent, TokDot, TokIdent, TokEOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(kinds), len(want), kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("token %d kind = %v, want %v", i, kinds[i], k)
		}
	}
}

func TestLexStringEscaping(t *testing.T) {
	tokens, err := lex(`RETURN 'it\'s here'`)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if tokens[1].Kind != TokString || tokens[1].Text != "it's here" {
		t.Fatalf("got %+v", tokens[1])
	}
}

func TestLexUnterminatedString(t *testing.T) {
	if _, err := lex(`RETURN 'oops`); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestLexParameterAndArrows(t *testing.T) {
	tokens, err := lex("(a)-[:KNOWS]->(b) WHERE a.id = $id")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	foundArrow, foundParam := false, false
	for _, tok := range tokens {
		if tok.Kind == TokArrowRight {
			foundArrow = true
		}
		if tok.Kind == TokParam && tok.Text == "id" {
			foundParam = true
		}
	}
	if !foundArrow {
		t.Error("expected an ArrowRight token")
	}
	if !foundParam {
		t.Error("expected a $id parameter token")
	}
}

func TestLexFloatAndNegative(t *testing.T) {
	tokens, err := lex("RETURN 3.14, -2")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if tokens[1].Kind != TokFloat || tokens[1].FloatVal != 3.14 {
		t.Fatalf("got %+v", tokens[1])
	}
	// '-' lexes as its own token; negation is a parser concern.
	if tokens[3].Kind != TokMinus {
		t.Fatalf("got %+v", tokens[3])
	}
}
