package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
)

type seedCity struct {
	name, region string
	lat, lon     float64
}

type seedRoute struct {
	name, operator      string
	origin, destination string
	duration            int
	price               float64
	vehicles            []string
	departures          []int // local hours
}

var (
	cities = []seedCity{
		{"Santiago", "Santiago Metropolitan", -33.4489, -70.6693},
		{"Valparaíso", "Valparaíso", -33.0472, -71.6127},
		{"Viña del Mar", "Valparaíso", -33.0245, -71.5518},
		{"Concepción", "Biobío", -36.8201, -73.0444},
		{"La Serena", "Coquimbo", -29.9027, -71.2519},
	}

	routes = []seedRoute{
		{"Santiago - Valparaíso", "Pullman Costa", "Santiago", "Valparaíso", 110, 4500, []string{"PC-101", "PC-102"}, []int{7, 11, 15, 19}},
		{"Santiago - Viña del Mar", "Pullman Costa", "Santiago", "Viña del Mar", 120, 4800, []string{"PC-201"}, []int{8, 18}},
		{"Santiago - Concepción", "Turbus Sur", "Santiago", "Concepción", 330, 12000, []string{"TS-301", "TS-302"}, []int{9, 23}},
		{"Santiago - La Serena", "Turbus Norte", "Santiago", "La Serena", 420, 15000, []string{"TN-401"}, []int{10}},
	}
)

func main() {
	var (
		dbURLFlag  string
		days       int
		adminEmail string
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&days, "days", 7, "number of days of trips to schedule, starting today")
	flag.StringVar(&adminEmail, "admin-email", "", "create a verified admin user with this email")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadForTool(dbURLFlag)
	if err != nil {
		logger.Fatal(err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := database.Migrate(ctx, db.DB, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	var existing int
	if err := db.Get(&existing, `SELECT COUNT(*) FROM routes`); err != nil {
		logger.Fatalf("failed to count routes: %v", err)
	}
	if existing > 0 {
		logger.WithField("routes", existing).Info("Catalog already seeded, skipping")
	} else if err := seedCatalog(ctx, db, cfg.Location(), days, logger); err != nil {
		logger.Fatalf("seed failed: %v", err)
	}

	if adminEmail != "" {
		if err := seedAdmin(database.NewUserRepository(db), adminEmail); err != nil {
			logger.Fatalf("failed to create admin: %v", err)
		}
		logger.WithField("email", adminEmail).Info("Admin user ready")
	}
}

func seedCatalog(ctx context.Context, db *database.PostgresDB, loc *time.Location, days int, logger *logrus.Logger) error {
	catalog := database.NewCatalogRepository(db.DB)
	vehicles := database.NewVehicleRepository(db.DB)
	trips := database.NewTripRepository(db.DB)

	country, _, err := catalog.UpsertCountry(ctx, "Chile", "CL")
	if err != nil {
		return err
	}

	regionIDs := map[string]int64{}
	cityIDs := map[string]int64{}
	for _, c := range cities {
		regionID, ok := regionIDs[c.region]
		if !ok {
			region, _, err := catalog.UpsertRegion(ctx, country.ID, c.region)
			if err != nil {
				return err
			}
			regionID = region.ID
			regionIDs[c.region] = regionID
		}
		lat, lon := c.lat, c.lon
		city, _, err := catalog.UpsertCity(ctx, regionID, c.name, &lat, &lon)
		if err != nil {
			return err
		}
		cityIDs[c.name] = city.ID
	}

	today := models.DateOf(time.Now().In(loc))
	tripCount := 0
	for _, r := range routes {
		route := &models.Route{
			Name:              r.name,
			OperatorName:      r.operator,
			OriginCityID:      cityIDs[r.origin],
			DestinationCityID: cityIDs[r.destination],
			DurationMinutes:   r.duration,
			BasePrice:         r.price,
			IsActive:          true,
		}
		if err := catalog.CreateRoute(ctx, route); err != nil {
			return err
		}

		for _, number := range r.vehicles {
			vehicle := &models.Vehicle{RouteID: route.ID, Number: number, Capacity: 40, IsActive: true}
			if err := vehicles.CreateVehicle(ctx, vehicle); err != nil {
				return err
			}

			for d := 0; d < days; d++ {
				date := today.AddDate(0, 0, d)
				for _, hour := range r.departures {
					trip := &models.Trip{
						VehicleID:   vehicle.ID,
						DepartureAt: date.Add(time.Duration(hour) * time.Hour),
						Price:       r.price,
					}
					if err := trips.CreateTrip(ctx, trip); err != nil {
						return err
					}
					tripCount++
				}
			}
		}
	}

	seats, err := services.NewSeatGeneratorService(vehicles, logger).Generate(ctx, false)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"cities": len(cityIDs),
		"routes": len(routes),
		"seats":  seats.Created,
		"trips":  tripCount,
	}).Info("Catalog seeded")
	return nil
}

func seedAdmin(users *database.UserRepository, email string) error {
	user, err := users.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		if user, err = users.CreateUser(email, "Admin", ""); err != nil {
			return err
		}
	}
	if err := users.MarkEmailVerified(user.ID); err != nil {
		return err
	}
	return users.AddUserRole(user.ID, models.RoleAdmin)
}
