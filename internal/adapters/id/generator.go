package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateSessionID() string {
	return g.generate("ss")
}

func (g *Generator) GenerateReviewID() string {
	return g.generate("rv")
}

func (g *Generator) GenerateRubricID() string {
	return g.generate("rb")
}

func (g *Generator) GenerateCompetencyID() string {
	return g.generate("cp")
}
