package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayBackendInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows the main pages
func (s *Server) displayEndpoints() {
	fmt.Println("Available pages:")
	fmt.Println("  GET  /            - Home")
	fmt.Println("  GET  /login       - Log in (also /signup)")
	fmt.Println("  GET  /dashboard   - Saved resumes (login required)")
	fmt.Println("  GET  /optimizer   - Generate, score and optimize a resume (login required)")
	fmt.Println("  GET  /profiles    - Contact profiles and resume templates (login required)")
	fmt.Println("  GET  /health      - Health check")
	fmt.Println("  GET  /stats       - Server statistics")
	fmt.Printf("Templates loaded: %d\n", len(templateNames()))
}

// displayBackendInfo shows which backend the frontend talks to
func (s *Server) displayBackendInfo() {
	fmt.Printf("Backend: %s\n", s.client.BaseURL())
	if stats := s.client.BreakerStats(); stats["enabled"] == false {
		fmt.Println("Backend circuit breaker: DISABLED")
	} else {
		fmt.Println("Backend circuit breaker: ENABLED")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.BySession {
			fmt.Println("  - Per session rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
