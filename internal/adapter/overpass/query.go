package overpass

import (
	"fmt"

	"placetale/internal/domain"
)

// BuildQuery renders the Overpass QL text for one category at one radius.
// Ways and relations are requested with "out center" so polygon features
// still yield a representative coordinate.
func BuildQuery(category domain.POICategory, point domain.GeoPoint, radiusM int) string {
	switch category {
	case domain.CategoryFood:
		return fmt.Sprintf(`[out:json][timeout:25];
(
  node(around:%d,%.6f,%.6f)["amenity"~"^(pub|bar|cafe|restaurant)$"]["name"];
  way(around:%d,%.6f,%.6f)["amenity"~"^(pub|bar|cafe|restaurant)$"]["name"];
);
out center;`,
			radiusM, point.Lat, point.Lon,
			radiusM, point.Lat, point.Lon)
	default:
		return fmt.Sprintf(`[out:json][timeout:25];
(
  node(around:%d,%.6f,%.6f)["tourism"]["name"];
  way(around:%d,%.6f,%.6f)["tourism"]["name"];
  relation(around:%d,%.6f,%.6f)["tourism"]["name"];
  node(around:%d,%.6f,%.6f)["historic"]["name"];
  way(around:%d,%.6f,%.6f)["historic"]["name"];
  relation(around:%d,%.6f,%.6f)["historic"]["name"];
);
out center;`,
			radiusM, point.Lat, point.Lon,
			radiusM, point.Lat, point.Lon,
			radiusM, point.Lat, point.Lon,
			radiusM, point.Lat, point.Lon,
			radiusM, point.Lat, point.Lon,
			radiusM, point.Lat, point.Lon)
	}
}
