package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* Redis */

/*
caches:

	ShipmentView:$userId:$shipmentId  rendered shipment detail view
*/
func shipmentViewKey(userId int, shipmentId int) string {
	return fmt.Sprintf("ShipmentView:%d:%d", userId, shipmentId)
}

func StoreShipmentViewCache(userId int, shipmentId int, view any) error {
	return config.SetRedisObject(shipmentViewKey(userId, shipmentId), view, GetCacheLifespan())
}

func RetrieveShipmentViewCache(userId int, shipmentId int, dest any) (bool, error) {
	return config.GetRedisObject(shipmentViewKey(userId, shipmentId), dest)
}

// InvalidateShipmentViewCache marks the rendered shipment detail page stale.
// Every shipment write path calls this so the next render regenerates.
func InvalidateShipmentViewCache(userId int, shipmentId int) error {
	return config.RemoveRedisKey(shipmentViewKey(userId, shipmentId))
}
