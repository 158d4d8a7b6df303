package main

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var configEnv = []string{
	"DOCQA_API_URL", "DOCQA_TOKEN", "DOCQA_MAX_ATTEMPTS", "DOCQA_INITIAL_DELAY",
	"DOCQA_HTTP_TIMEOUT", "DOCQA_RATE_LIMIT", "DOCQA_CIRCUIT_BREAKER", "DOCQA_LOG_LEVEL",
	"DOCQA_LOG_FORMAT", "DOCQA_KEYRING_SERVICE", "DOCQA_KEYRING_USER",
}

// clearConfigEnv unsets every DOCQA_ variable for the current test and restores it afterwards.
func clearConfigEnv() {
	for _, key := range configEnv {
		if old, ok := os.LookupEnv(key); ok {
			DeferCleanup(os.Setenv, key, old)
		}
		Expect(os.Unsetenv(key)).To(Succeed())
	}
}

func setEnv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("LoadConfig", func() {
	BeforeEach(clearConfigEnv)

	It("returns the defaults without a file or environment", func() {
		cfg, err := LoadConfig("")
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.MaxAttempts).To(Equal(3))
		Expect(cfg.InitialDelay).To(Equal(time.Second))
		Expect(cfg.HTTPTimeout).To(Equal(60 * time.Second))
		Expect(cfg.LogLevel).To(Equal("warn"))
		Expect(cfg.LogFormat).To(Equal("text"))
		Expect(cfg.KeyringService).To(Equal("docqa"))
		Expect(cfg.CircuitBreaker).To(BeFalse())
	})

	It("reads a YAML file and expands variables in it", func() {
		setEnv("DOCQA_TEST_HOST", "api.example.com")
		path := filepath.Join(GinkgoT().TempDir(), "docqa.yaml")
		Expect(os.WriteFile(path, []byte(`
api_url: https://${DOCQA_TEST_HOST}
max_attempts: 5
initial_delay: 250ms
circuit_breaker: true
rate_limit: 2.5
corrections:
  old-id: new-id
`), 0o600)).To(Succeed())

		cfg, err := LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.APIURL).To(Equal("https://api.example.com"))
		Expect(cfg.MaxAttempts).To(Equal(5))
		Expect(cfg.InitialDelay).To(Equal(250 * time.Millisecond))
		Expect(cfg.CircuitBreaker).To(BeTrue())
		Expect(cfg.RateLimit).To(Equal(2.5))
		Expect(cfg.Corrections).To(HaveKeyWithValue("old-id", "new-id"))
		Expect(cfg.HTTPTimeout).To(Equal(60 * time.Second))
	})

	It("lets the environment override the file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "docqa.yaml")
		Expect(os.WriteFile(path, []byte("api_url: https://file.example.com\nmax_attempts: 5\n"), 0o600)).To(Succeed())
		setEnv("DOCQA_API_URL", "https://env.example.com")
		setEnv("DOCQA_MAX_ATTEMPTS", "2")
		setEnv("DOCQA_INITIAL_DELAY", "10ms")
		setEnv("DOCQA_CIRCUIT_BREAKER", "true")
		setEnv("DOCQA_TOKEN", "Bearer env")

		cfg, err := LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.APIURL).To(Equal("https://env.example.com"))
		Expect(cfg.MaxAttempts).To(Equal(2))
		Expect(cfg.InitialDelay).To(Equal(10 * time.Millisecond))
		Expect(cfg.CircuitBreaker).To(BeTrue())
		Expect(cfg.Token).To(Equal("Bearer env"))
	})

	It("ignores malformed environment values", func() {
		setEnv("DOCQA_MAX_ATTEMPTS", "many")
		setEnv("DOCQA_INITIAL_DELAY", "soon")
		setEnv("DOCQA_RATE_LIMIT", "fast")

		cfg, err := LoadConfig("")
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.MaxAttempts).To(Equal(3))
		Expect(cfg.InitialDelay).To(Equal(time.Second))
		Expect(cfg.RateLimit).To(BeZero())
	})

	It("fails on a missing file", func() {
		_, err := LoadConfig(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
	})

	It("fails on invalid YAML", func() {
		path := filepath.Join(GinkgoT().TempDir(), "docqa.yaml")
		Expect(os.WriteFile(path, []byte("max_attempts: [1, 2"), 0o600)).To(Succeed())

		_, err := LoadConfig(path)
		Expect(err).To(MatchError(ContainSubstring("failed to parse config file")))
	})
})

var _ = Describe("Config.Validate", func() {
	DescribeTable("API URL",
		func(url string, valid bool) {
			cfg := defaultConfig()
			cfg.APIURL = url
			if valid {
				Expect(cfg.Validate()).To(Succeed())
			} else {
				Expect(cfg.Validate()).NotTo(Succeed())
			}
		},
		Entry("https", "https://api.example.com", true),
		Entry("http", "http://localhost:8080", true),
		Entry("empty", "", false),
		Entry("no scheme", "api.example.com", false),
	)

	It("rejects a negative rate limit", func() {
		cfg := defaultConfig()
		cfg.APIURL = "https://api.example.com"
		cfg.RateLimit = -1
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("rate limit")))
	})
})
