package linguistic

import (
	"context"
	"strings"

	"github.com/jdkato/prose/v2"
)

// ProseTagger tags English text with the prose averaged-perceptron tagger and
// maps its Penn Treebank tags onto universal tags.
type ProseTagger struct{}

// NewProseTagger returns a ProseTagger. The model is embedded in the library, so
// construction cannot fail.
func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

// Tag implements Tagger.
func (p *ProseTagger) Tag(ctx context.Context, sentence string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := prose.NewDocument(sentence,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(doc.Tokens()))
	for i, tok := range doc.Tokens() {
		tokens = append(tokens, Token{
			Text:  tok.Text,
			POS:   PennToUniversal(tok.Tag),
			Index: i,
		})
	}
	return tokens, nil
}

// PennToUniversal maps a Penn Treebank tag to its universal counterpart.
func PennToUniversal(tag string) string {
	switch {
	case tag == "NNP" || tag == "NNPS":
		return POSPropNoun
	case strings.HasPrefix(tag, "NN"):
		return POSNoun
	case strings.HasPrefix(tag, "VB") || tag == "MD":
		return POSVerb
	case strings.HasPrefix(tag, "RB") || tag == "WRB":
		return POSAdverb
	case strings.HasPrefix(tag, "JJ"):
		return POSAdjective
	case tag == "PRP" || tag == "PRP$" || tag == "WP" || tag == "WP$":
		return "PRON"
	case tag == "DT" || tag == "PDT" || tag == "WDT":
		return "DET"
	case tag == "IN":
		return "ADP"
	case tag == "CC":
		return "CCONJ"
	case tag == "CD":
		return "NUM"
	case tag == "UH":
		return "INTJ"
	case tag == "RP" || tag == "TO" || tag == "POS":
		return "PART"
	case tag == "," || tag == "." || tag == ":" || tag == "``" || tag == "''" ||
		tag == "(" || tag == ")" || tag == "-LRB-" || tag == "-RRB-" || tag == "#" || tag == "$":
		return POSPunct
	default:
		return POSOther
	}
}
