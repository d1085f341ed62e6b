package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/database/model"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/util/common"
	"github.com/hivecrest/member-api/util/random"
	"github.com/hivecrest/member-api/web/entity"
)

var defaultValueMap = map[string]string{
	"webListen":            "",
	"webDomain":            "",
	"webPort":              "5000",
	"webCertFile":          "",
	"webKeyFile":           "",
	"webBasePath":          "/",
	"sessionMaxAge":        "60",
	"secret":               random.Seq(32),
	"corsOrigin":           "*",
	"timeLocation":         "America/Chicago",
	"googleClientId":       "",
	"googleClientSecret":   "",
	"facebookClientId":     "",
	"facebookClientSecret": "",
	"oauthRedirectBase":    "",
}

// SettingService reads and writes the DB-backed settings table, falling
// back to defaultValueMap for keys that were never saved.
type SettingService struct{}

func (s *SettingService) GetAllSetting() (*entity.AllSetting, error) {
	db := database.GetDB()
	settings := make([]*model.Setting, 0)
	err := db.Model(model.Setting{}).Find(&settings).Error
	if err != nil {
		return nil, err
	}

	stored := map[string]string{}
	for _, setting := range settings {
		stored[setting.Key] = setting.Value
	}
	get := func(key string) string {
		if value, ok := stored[key]; ok {
			return value
		}
		return defaultValueMap[key]
	}
	atoi := func(key string) int {
		n, err := strconv.Atoi(get(key))
		if err != nil {
			logger.Warningf("setting %s is not a number: %v", key, err)
		}
		return n
	}

	allSetting := &entity.AllSetting{
		WebListen:            get("webListen"),
		WebDomain:            get("webDomain"),
		WebPort:              atoi("webPort"),
		WebCertFile:          get("webCertFile"),
		WebKeyFile:           get("webKeyFile"),
		WebBasePath:          get("webBasePath"),
		SessionMaxAge:        atoi("sessionMaxAge"),
		CorsOrigin:           get("corsOrigin"),
		TimeLocation:         get("timeLocation"),
		GoogleClientId:       get("googleClientId"),
		GoogleClientSecret:   get("googleClientSecret"),
		FacebookClientId:     get("facebookClientId"),
		FacebookClientSecret: get("facebookClientSecret"),
		OAuthRedirectBase:    get("oauthRedirectBase"),
	}
	return allSetting, nil
}

// UpdateAllSetting persists every field of the given settings after
// validation.
func (s *SettingService) UpdateAllSetting(allSetting *entity.AllSetting) error {
	if err := allSetting.CheckValid(); err != nil {
		return err
	}

	values := map[string]string{
		"webListen":            allSetting.WebListen,
		"webDomain":            allSetting.WebDomain,
		"webPort":              strconv.Itoa(allSetting.WebPort),
		"webCertFile":          allSetting.WebCertFile,
		"webKeyFile":           allSetting.WebKeyFile,
		"webBasePath":          allSetting.WebBasePath,
		"sessionMaxAge":        strconv.Itoa(allSetting.SessionMaxAge),
		"corsOrigin":           allSetting.CorsOrigin,
		"timeLocation":         allSetting.TimeLocation,
		"googleClientId":       allSetting.GoogleClientId,
		"googleClientSecret":   allSetting.GoogleClientSecret,
		"facebookClientId":     allSetting.FacebookClientId,
		"facebookClientSecret": allSetting.FacebookClientSecret,
		"oauthRedirectBase":    allSetting.OAuthRedirectBase,
	}
	for key, value := range values {
		if err := s.saveSetting(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *SettingService) ResetSettings() error {
	db := database.GetDB()
	return db.Where("1 = 1").Delete(model.Setting{}).Error
}

func (s *SettingService) getSetting(key string) (*model.Setting, error) {
	db := database.GetDB()
	setting := &model.Setting{}
	err := db.Model(model.Setting{}).Where("key = ?", key).First(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (s *SettingService) saveSetting(key string, value string) error {
	setting, err := s.getSetting(key)
	db := database.GetDB()
	if database.IsNotFound(err) {
		return db.Create(&model.Setting{
			Key:   key,
			Value: value,
		}).Error
	} else if err != nil {
		return err
	}
	setting.Key = key
	setting.Value = value
	return db.Save(setting).Error
}

func (s *SettingService) getString(key string) (string, error) {
	setting, err := s.getSetting(key)
	if database.IsNotFound(err) {
		value, ok := defaultValueMap[key]
		if !ok {
			return "", common.NewErrorf("key <%v> not in defaultValueMap", key)
		}
		return value, nil
	} else if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *SettingService) setString(key string, value string) error {
	return s.saveSetting(key, value)
}

func (s *SettingService) getInt(key string) (int, error) {
	str, err := s.getString(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(str)
}

func (s *SettingService) setInt(key string, value int) error {
	return s.setString(key, strconv.Itoa(value))
}

func (s *SettingService) GetListen() (string, error) {
	return s.getString("webListen")
}

func (s *SettingService) SetListen(ip string) error {
	return s.setString("webListen", ip)
}

func (s *SettingService) GetWebDomain() (string, error) {
	return s.getString("webDomain")
}

func (s *SettingService) GetPort() (int, error) {
	return s.getInt("webPort")
}

func (s *SettingService) SetPort(port int) error {
	return s.setInt("webPort", port)
}

func (s *SettingService) GetCertFile() (string, error) {
	return s.getString("webCertFile")
}

func (s *SettingService) GetKeyFile() (string, error) {
	return s.getString("webKeyFile")
}

func (s *SettingService) GetSessionMaxAge() (int, error) {
	return s.getInt("sessionMaxAge")
}

// GetSecret returns the cookie-signing secret, persisting the generated
// default on first use so it survives restarts.
func (s *SettingService) GetSecret() ([]byte, error) {
	secret, err := s.getString("secret")
	if secret == defaultValueMap["secret"] {
		if saveErr := s.saveSetting("secret", secret); saveErr != nil {
			logger.Warning("save secret failed:", saveErr)
		}
	}
	return []byte(secret), err
}

func (s *SettingService) GetCorsOrigin() (string, error) {
	return s.getString("corsOrigin")
}

func (s *SettingService) SetCorsOrigin(origin string) error {
	return s.setString("corsOrigin", origin)
}

func (s *SettingService) SetBasePath(basePath string) error {
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return s.setString("webBasePath", basePath)
}

func (s *SettingService) GetBasePath() (string, error) {
	basePath, err := s.getString("webBasePath")
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return basePath, nil
}

func (s *SettingService) GetTimeLocation() (*time.Location, error) {
	l, err := s.getString("timeLocation")
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(l)
	if err != nil {
		defaultLocation := defaultValueMap["timeLocation"]
		logger.Errorf("location <%v> not exist, using default location: %v", l, defaultLocation)
		return time.LoadLocation(defaultLocation)
	}
	return location, nil
}

func (s *SettingService) GetGoogleClientId() (string, error) {
	return s.getString("googleClientId")
}

func (s *SettingService) GetGoogleClientSecret() (string, error) {
	return s.getString("googleClientSecret")
}

func (s *SettingService) GetFacebookClientId() (string, error) {
	return s.getString("facebookClientId")
}

func (s *SettingService) GetFacebookClientSecret() (string, error) {
	return s.getString("facebookClientSecret")
}

// GetOAuthRedirectBase returns the external base URL used to build OAuth
// callback URLs, e.g. "https://members.example.org".
func (s *SettingService) GetOAuthRedirectBase() (string, error) {
	return s.getString("oauthRedirectBase")
}
