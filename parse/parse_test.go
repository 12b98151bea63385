package parse

import "testing"

func TestParseSingleArgTerm(t *testing.T) {
	terms, err := Parse("Jedi(Yoda)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(terms))
	}
	term := terms[0]
	if term.Functor != (Arg{Kind: ArgLiteral, Name: "Jedi"}) {
		t.Errorf("unexpected functor: %+v", term.Functor)
	}
	if term.Subject != (Arg{Kind: ArgLiteral, Name: "Yoda"}) {
		t.Errorf("unexpected subject: %+v", term.Subject)
	}
	if term.HasObject {
		t.Errorf("expected no object")
	}
}

func TestParseTwoArgTermWithThisAndLiteral(t *testing.T) {
	terms, err := Parse("HomePlanet(., Tatooine)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	term := terms[0]
	if term.Subject.Kind != ArgThis {
		t.Errorf("expected This subject, got %+v", term.Subject)
	}
	if !term.HasObject || term.Object != (Arg{Kind: ArgLiteral, Name: "Tatooine"}) {
		t.Errorf("unexpected object: %+v", term.Object)
	}
}

func TestParseMultipleTermsAndVariables(t *testing.T) {
	terms, err := Parse("Likes(., X), Likes(X, .)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(terms))
	}
	if terms[0].Object.Kind != ArgVariable || terms[0].Object.Name != "X" {
		t.Errorf("unexpected first-term object: %+v", terms[0].Object)
	}
	if terms[1].Subject.Kind != ArgVariable || terms[1].Subject.Name != "X" {
		t.Errorf("unexpected second-term subject: %+v", terms[1].Subject)
	}
}

func TestParseVariableAsFunctor(t *testing.T) {
	terms, err := Parse("X(., X)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	term := terms[0]
	if term.Functor.Kind != ArgVariable || term.Functor.Name != "X" {
		t.Errorf("expected variable functor X, got %+v", term.Functor)
	}
	if term.Object.Kind != ArgVariable || term.Object.Name != "X" {
		t.Errorf("expected variable object X, got %+v", term.Object)
	}
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	if _, err := Parse("Jedi(Yoda) extra"); err == nil {
		t.Fatal("expected an error for trailing input")
	}
}

func TestParseRejectsUnterminatedTerm(t *testing.T) {
	if _, err := Parse("Jedi(Yoda"); err == nil {
		t.Fatal("expected an error for an unterminated term")
	}
}
