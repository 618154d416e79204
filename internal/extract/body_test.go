package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dfgiraldo/movalert/internal/news"
)

const testArticle = `<!DOCTYPE html>
<html><head><title>Cierre de la Avenida Regional</title></head><body>
<article>
<h1>Cierre de la Avenida Regional</h1>
<p>La Secretaría de Movilidad anunció el cierre total de la Avenida Regional
entre la calle 30 y la calle 44 durante el fin de semana por obras de
mantenimiento del puente de la calle 33. Los conductores deberán tomar la
Avenida Las Vegas o la carrera 65 como rutas alternas.</p>
<p>El cierre comenzará el viernes a las 10 de la noche y se extenderá hasta
el lunes a las 4 de la mañana. Agentes de tránsito estarán en los puntos de
desvío orientando a los conductores durante todo el operativo.</p>
</article>
</body></html>`

func TestFillBodiesFetchesThinItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testArticle))
	}))
	defer server.Close()

	items := []news.Item{
		news.NewItem("test", server.URL+"/articulo", "Cierre", "teaser corto", ""),
	}

	f := NewBodyFetcher(5 * time.Second)
	f.FillBodies(context.Background(), items)

	if !strings.Contains(items[0].Body, "Avenida Regional") {
		t.Errorf("Expected fetched article text in body, got %q", items[0].Body)
	}
	if got := utf8.RuneCountInString(items[0].Body); got > news.MaxBodyLen {
		t.Errorf("Body exceeds %d chars: %d", news.MaxBodyLen, got)
	}
}

func TestFillBodiesSkipsLongBodies(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(testArticle))
	}))
	defer server.Close()

	long := strings.Repeat("texto ", 100)
	items := []news.Item{
		news.NewItem("test", server.URL+"/articulo", "Completo", long, ""),
	}

	f := NewBodyFetcher(5 * time.Second)
	f.FillBodies(context.Background(), items)

	if requests != 0 {
		t.Errorf("Expected no fetches for items with full bodies, got %d", requests)
	}
	if items[0].Body != news.TruncateBody(long) {
		t.Error("Body should be left untouched")
	}
}

func TestFillBodiesKeepsBodyOnFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	items := []news.Item{
		news.NewItem("test", server.URL+"/perdido", "Perdido", "teaser", ""),
	}

	f := NewBodyFetcher(5 * time.Second)
	f.FillBodies(context.Background(), items)

	if items[0].Body != "teaser" {
		t.Errorf("Expected original body kept on failure, got %q", items[0].Body)
	}
}

func TestFillBodiesSkipsFailedDomains(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "error", http.StatusInternalServerError)
	}))
	defer server.Close()

	items := []news.Item{
		news.NewItem("test", server.URL+"/uno", "Uno", "", ""),
		news.NewItem("test", server.URL+"/dos", "Dos", "", ""),
		news.NewItem("test", server.URL+"/tres", "Tres", "", ""),
	}

	f := NewBodyFetcher(5 * time.Second)
	f.FillBodies(context.Background(), items)

	if requests != 1 {
		t.Errorf("Expected a failing domain to be fetched once, got %d requests", requests)
	}
}
