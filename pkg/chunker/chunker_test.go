package chunker_test

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/piperbook/piperbook/core/schema"
	"github.com/piperbook/piperbook/pkg/chunker"
)

// reassemble glues the chunk spans back together from the original input.
func reassemble(text string, chunks []schema.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(text[c.Start:c.End])
	}
	return b.String()
}

var _ = Describe("Split", func() {
	Context("with invalid bounds", func() {
		It("rejects zero", func() {
			_, err := chunker.Split("hello", 0)
			Expect(err).To(HaveOccurred())
		})
		It("rejects negatives", func() {
			_, err := chunker.Split("hello", -5)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("with empty input", func() {
		It("returns no chunks for the empty string", func() {
			chunks, err := chunker.Split("", 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(BeEmpty())
		})
		It("returns no chunks for whitespace", func() {
			chunks, err := chunker.Split("  \n\t  ", 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(BeEmpty())
		})
	})

	Context("with input that fits the bound", func() {
		It("returns a single chunk", func() {
			chunks, err := chunker.Split("Short and sweet.", 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Index).To(Equal(0))
			Expect(chunks[0].Text).To(Equal("Short and sweet."))
			Expect(chunks[0].Start).To(Equal(0))
			Expect(chunks[0].End).To(Equal(len("Short and sweet.")))
		})
		It("trims surrounding whitespace from the text but keeps it in the span", func() {
			in := "  Hello there.  "
			chunks, err := chunker.Split(in, 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal("Hello there."))
			Expect(reassemble(in, chunks)).To(Equal(in))
		})
	})

	Context("splitting at sentence boundaries", func() {
		It("packs whole sentences up to the bound", func() {
			in := "Hello. This is a test of chunking."
			chunks, err := chunker.Split(in, 20)
			Expect(err).ToNot(HaveOccurred())
			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Text
			}
			Expect(texts).To(Equal([]string{"Hello.", "This is a test of", "chunking."}))
		})
		It("groups several short sentences into one chunk", func() {
			chunks, err := chunker.Split("One. Two. Three. Four.", 12)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(2))
			Expect(chunks[0].Text).To(Equal("One. Two."))
			Expect(chunks[1].Text).To(Equal("Three. Four."))
		})
		It("treats runs of punctuation as one boundary", func() {
			chunks, err := chunker.Split("Really?! Yes. Definitely!!", 12)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(3))
			Expect(chunks[0].Text).To(Equal("Really?!"))
			Expect(chunks[1].Text).To(Equal("Yes."))
			Expect(chunks[2].Text).To(Equal("Definitely!!"))
		})
		It("does not split numbers like 3.14", func() {
			chunks, err := chunker.Split("Pi is 3.14 about.", 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal("Pi is 3.14 about."))
		})
	})

	Context("splitting oversized sentences at whitespace", func() {
		It("falls back to word boundaries", func() {
			chunks, err := chunker.Split("alpha beta gamma delta", 11)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(2))
			Expect(chunks[0].Text).To(Equal("alpha beta"))
			Expect(chunks[1].Text).To(Equal("gamma delta"))
		})
	})

	Context("hard-cutting oversized words", func() {
		It("cuts a single long word into bounded pieces", func() {
			in := strings.Repeat("a", 25)
			chunks, err := chunker.Split(in, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(3))
			Expect(chunks[0].Text).To(Equal(strings.Repeat("a", 10)))
			Expect(chunks[1].Text).To(Equal(strings.Repeat("a", 10)))
			Expect(chunks[2].Text).To(Equal(strings.Repeat("a", 5)))
			Expect(reassemble(in, chunks)).To(Equal(in))
		})
		It("never cuts inside a multi-byte rune", func() {
			in := strings.Repeat("é", 20) // 2 bytes each
			chunks, err := chunker.Split(in, 5)
			Expect(err).ToNot(HaveOccurred())
			for _, c := range chunks {
				Expect(utf8.ValidString(c.Text)).To(BeTrue())
				Expect(len(c.Text)).To(BeNumerically("<=", 5))
			}
			Expect(reassemble(in, chunks)).To(Equal(in))
		})
		It("emits a rune wider than the bound whole", func() {
			chunks, err := chunker.Split("日本語", 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(3))
			for _, c := range chunks {
				Expect(utf8.RuneCountInString(c.Text)).To(Equal(1))
			}
		})
	})

	Context("span bookkeeping", func() {
		inputs := map[string]string{
			"plain prose":       "The quick brown fox jumps over the lazy dog. It barked. Then it slept for a very long time indeed.",
			"messy whitespace":  "  First sentence here.   Second one\n\nafter a blank line. Third!  ",
			"no punctuation":    "just a stream of words with no stops at all flowing on and on and on",
			"unicode text":      "こんにちは。これはテストです。 Mixed with English. Voilà!",
			"single long token": "prefix " + strings.Repeat("x", 40) + " suffix.",
		}
		for name, in := range inputs {
			It("reconstructs the input exactly from "+name, func() {
				chunks, err := chunker.Split(in, 16)
				Expect(err).ToNot(HaveOccurred())
				Expect(chunks).ToNot(BeEmpty())
				Expect(reassemble(in, chunks)).To(Equal(in))

				Expect(chunks[0].Start).To(Equal(0))
				Expect(chunks[len(chunks)-1].End).To(Equal(len(in)))
				for i, c := range chunks {
					Expect(c.Index).To(Equal(i))
					Expect(c.End).To(BeNumerically(">", c.Start))
					if i > 0 {
						Expect(c.Start).To(Equal(chunks[i-1].End))
					}
					Expect(c.Text).ToNot(BeEmpty())
					Expect(c.Text).To(Equal(strings.TrimSpace(in[c.Start:c.End])))
				}
			})
		}
	})
})
