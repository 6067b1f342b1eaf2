package upload

import "github.com/mediagate/uploader/internal/user"

// ClientConfig is a ShareX custom uploader definition pointing at this
// gateway with the user's credential filled in.
type ClientConfig struct {
	Version         string              `json:"Version"`
	Name            string              `json:"Name"`
	DestinationType string              `json:"DestinationType"`
	RequestMethod   string              `json:"RequestMethod"`
	RequestURL      string              `json:"RequestURL"`
	Headers         ClientConfigHeaders `json:"Headers"`
	Body            string              `json:"Body"`
	FileFormName    string              `json:"FileFormName"`
	URL             string              `json:"URL"`
	DeletionURL     string              `json:"DeletionURL"`
}

// ClientConfigHeaders are the headers the client sends with every upload.
type ClientConfigHeaders struct {
	Authorization string `json:"Authorization"`
}

// ClientConfig builds the uploader definition for u.
func (s *Service) ClientConfig(u user.User) ClientConfig {
	return ClientConfig{
		Version:         "14.1.0",
		Name:            u.Name,
		DestinationType: "ImageUploader, FileUploader",
		RequestMethod:   "POST",
		RequestURL:      s.opts.PublicURL + "/file",
		Headers:         ClientConfigHeaders{Authorization: "Bearer " + u.Token},
		Body:            "MultipartFormData",
		FileFormName:    FileField,
		URL:             "{json:image}",
		DeletionURL:     "{json:delete}",
	}
}
