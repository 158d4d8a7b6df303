package docqa_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

var _ = Describe("StaticCorrector", func() {
	const (
		wrong = "31c3fea0-1baf-43a1-823e-6070e6ef6088"
		right = "31c3fab0-1baf-41a1-837d-687bf6bfdd88"
	)

	var corrector *docqa.StaticCorrector

	BeforeEach(func() {
		corrector = docqa.NewStaticCorrector(docqa.DefaultCorrections())
	})

	It("replaces a known-bad identifier", func() {
		c := corrector.Correct(wrong)

		Expect(c.Corrected).To(BeTrue())
		Expect(c.ID).To(Equal(right))
		Expect(c.Note).To(Equal("Auto-correction applied: Document ID mismatch detected and fixed. Using: 31c3fab0..."))
	})

	It("passes unknown identifiers through", func() {
		c := corrector.Correct("0f9e8d7c-0000-4000-8000-000000000000")

		Expect(c.Corrected).To(BeFalse())
		Expect(c.ID).To(Equal("0f9e8d7c-0000-4000-8000-000000000000"))
		Expect(c.Note).To(BeEmpty())
	})

	It("is idempotent", func() {
		first := corrector.Correct(wrong)
		second := corrector.Correct(first.ID)

		Expect(second.Corrected).To(BeFalse())
		Expect(second.ID).To(Equal(right))
	})

	It("copies its table", func() {
		table := map[string]string{"a": "b"}
		c := docqa.NewStaticCorrector(table)
		table["a"] = "z"
		table["x"] = "y"

		Expect(c.Correct("a").ID).To(Equal("b"))
		Expect(c.Correct("x").Corrected).To(BeFalse())
		Expect(c.Len()).To(Equal(1))
	})

	It("ignores entries that map to themselves or to nothing", func() {
		c := docqa.NewStaticCorrector(map[string]string{"a": "a", "b": "", "c": "d"})

		Expect(c.Len()).To(Equal(1))
		Expect(c.Correct("a").Corrected).To(BeFalse())
		Expect(c.Correct("b").ID).To(Equal("b"))
	})

	It("does not shorten short identifiers in the note", func() {
		c := docqa.NewStaticCorrector(map[string]string{"old": "new"})

		Expect(c.Correct("old").Note).To(HaveSuffix("Using: new..."))
	})
})

var _ = Describe("NopCorrector", func() {
	It("never corrects", func() {
		c := docqa.NopCorrector{}.Correct("31c3fea0-1baf-43a1-823e-6070e6ef6088")

		Expect(c.Corrected).To(BeFalse())
		Expect(c.ID).To(Equal("31c3fea0-1baf-43a1-823e-6070e6ef6088"))
	})
})
