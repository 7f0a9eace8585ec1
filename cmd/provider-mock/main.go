package main

import (
	"flag"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/octacordshop/PrimeStream/internal/providermock"
)

// Point the backend at it with
//
//	PRIMESTREAM_PROVIDER_BASE_URL=http://localhost:9000/3
//	PRIMESTREAM_PLAYBACK_MOVIE_TEMPLATE=http://localhost:9000/embed/movie/{id}
//	PRIMESTREAM_PLAYBACK_EPISODE_TEMPLATE=http://localhost:9000/embed/tv/{id}/{season}-{episode}
func main() {
	addr := flag.String("addr", ":9000", "listen address")
	apiKey := flag.String("api-key", "", "require this api_key on metadata calls")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	srv := &providermock.Server{APIKey: *apiKey}

	log.Printf("provider-mock listening on %s", *addr)
	log.Fatal(srv.Router().Run(*addr))
}
